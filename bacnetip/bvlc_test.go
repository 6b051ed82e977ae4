// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bacnetip

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeo-scada/bacnet/application"
	"github.com/edgeo-scada/bacnet/encoding"
	"github.com/edgeo-scada/bacnet/network"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	data, err := hex.DecodeString(s)
	require.NoError(t, err)
	return data
}

// whoIsBroadcastFrame is a global-broadcast Who-Is as captured off the wire.
const whoIsBroadcastFrame = "810b000c0120ffff00ff1008"

// iAmUnicastFrame is the matching I-Am answer from device 599.
const iAmUnicastFrame = "810a001401001000c4020002572204009100210f"

func TestEncodeWhoIsBroadcastFrame(t *testing.T) {
	apdu, err := application.NewUnconfirmedRequest(&application.WhoIs{})
	require.NoError(t, err)
	npdu := network.New(apdu)
	npdu.Destination = &network.Destination{Net: 0xFFFF, HopCount: 255}

	frame := NewBroadcast(npdu)
	data, err := frame.EncodeBytes()
	require.NoError(t, err)
	assert.Equal(t, mustHex(t, whoIsBroadcastFrame), data)
	assert.Equal(t, frame.Len(), len(data))

	var buf bytes.Buffer
	require.NoError(t, frame.Encode(&buf))
	assert.Equal(t, data, buf.Bytes())
}

func TestEncodeIAmUnicastFrame(t *testing.T) {
	apdu, err := application.NewUnconfirmedRequest(&application.IAm{
		Device:       encoding.NewObjectIdentifier(encoding.ObjectTypeDevice, 599),
		MaxAPDU:      1024,
		Segmentation: application.SegmentedBoth,
		VendorID:     15,
	})
	require.NoError(t, err)

	data, err := NewUnicast(network.New(apdu)).EncodeBytes()
	require.NoError(t, err)
	assert.Equal(t, mustHex(t, iAmUnicastFrame), data)
}

func TestDecodeWhoIsBroadcastFrame(t *testing.T) {
	frame, err := DecodeBVLC(mustHex(t, whoIsBroadcastFrame))
	require.NoError(t, err)
	assert.Equal(t, FunctionOriginalBroadcast, frame.Function)
	require.NotNil(t, frame.NPDU.Destination)
	assert.Equal(t, uint16(0xFFFF), frame.NPDU.Destination.Net)
	assert.Empty(t, frame.NPDU.Destination.Addr)
	assert.Equal(t, uint8(255), frame.NPDU.Destination.HopCount)

	apdu, ok := frame.NPDU.Content.(*application.APDU)
	require.True(t, ok)
	svc, err := apdu.Service()
	require.NoError(t, err)
	assert.IsType(t, &application.WhoIs{}, svc)
}

func TestDecodeIAmUnicastFrame(t *testing.T) {
	frame, err := DecodeBVLC(mustHex(t, iAmUnicastFrame))
	require.NoError(t, err)
	assert.Equal(t, FunctionOriginalUnicast, frame.Function)

	apdu, ok := frame.NPDU.Content.(*application.APDU)
	require.True(t, ok)
	svc, err := apdu.Service()
	require.NoError(t, err)
	iam, ok := svc.(*application.IAm)
	require.True(t, ok)
	assert.Equal(t, uint32(599), iam.Device.Instance)
	assert.Equal(t, uint16(15), iam.VendorID)
}

func TestDecodeBVLCRejectsWrongLinkType(t *testing.T) {
	_, err := DecodeBVLC([]byte{0x00, 0x00, 0x00, 0x00})
	assert.ErrorIs(t, err, ErrUnsupportedLinkType)
	assert.Contains(t, err.Error(), "0x00")
}

func TestDecodeBVLCRejectsUnsupportedFunction(t *testing.T) {
	for _, fn := range []byte{0x00, 0x04, 0x05, 0x09, 0x0C, 0x7F} {
		_, err := DecodeBVLC([]byte{0x81, fn, 0x00, 0x04})
		assert.ErrorIs(t, err, ErrUnsupportedFunction, "function 0x%02X", fn)
	}
}

func TestDecodeBVLCFraming(t *testing.T) {
	_, err := DecodeBVLC(mustHex(t, "810b00"))
	assert.ErrorIs(t, err, encoding.ErrTruncated)

	// Declared length below the header size.
	_, err = DecodeBVLC(mustHex(t, "810b0003"))
	assert.ErrorIs(t, err, encoding.ErrMalformedLength)

	// Declared length past the end of the datagram.
	short := mustHex(t, whoIsBroadcastFrame)[:10]
	_, err = DecodeBVLC(short)
	assert.ErrorIs(t, err, encoding.ErrMalformedLength)

	// Trailing bytes past the declared length are ignored.
	padded := append(mustHex(t, whoIsBroadcastFrame), 0xDE, 0xAD)
	frame, err := DecodeBVLC(padded)
	require.NoError(t, err)
	assert.Equal(t, FunctionOriginalBroadcast, frame.Function)
}

func TestBVLCSliceMatchesOwned(t *testing.T) {
	raw := mustHex(t, iAmUnicastFrame)

	view, err := BVLCSliceFrom(raw)
	require.NoError(t, err)
	owned, err := DecodeBVLC(raw)
	require.NoError(t, err)

	assert.Equal(t, uint8(LinkTypeBACnetIP), view.LinkType())
	assert.Equal(t, owned.Function, view.Function())
	assert.Equal(t, uint16(len(raw)), view.Length())

	npduView, err := view.NPDU()
	require.NoError(t, err)
	assert.Equal(t, owned.NPDU.Version, npduView.Version())

	back, err := view.ToOwned()
	require.NoError(t, err)
	assert.Equal(t, owned, back)
}

func TestBVLCSliceTrimsTrailingBytes(t *testing.T) {
	padded := append(mustHex(t, whoIsBroadcastFrame), 0xDE, 0xAD)
	view, err := BVLCSliceFrom(padded)
	require.NoError(t, err)
	assert.Equal(t, int(view.Length()), len(view))

	_, err = BVLCSliceFrom([]byte{0x00, 0x0B, 0x00, 0x04})
	assert.ErrorIs(t, err, ErrUnsupportedLinkType)
}
