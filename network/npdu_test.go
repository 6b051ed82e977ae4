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

package network

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeo-scada/bacnet/application"
	"github.com/edgeo-scada/bacnet/encoding"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	data, err := hex.DecodeString(s)
	require.NoError(t, err)
	return data
}

func whoIsNPDU(t *testing.T) *NPDU {
	t.Helper()
	apdu, err := application.NewUnconfirmedRequest(&application.WhoIs{})
	require.NoError(t, err)
	return New(apdu)
}

func TestEncodeLocalNPDU(t *testing.T) {
	npdu := whoIsNPDU(t)
	data, err := npdu.EncodeBytes()
	require.NoError(t, err)
	assert.Equal(t, mustHex(t, "01001008"), data)
	assert.Equal(t, len(data), npdu.Len())
}

func TestEncodeGlobalBroadcastNPDU(t *testing.T) {
	npdu := whoIsNPDU(t)
	npdu.Destination = &Destination{Net: 0xFFFF, HopCount: 255}

	data, err := npdu.EncodeBytes()
	require.NoError(t, err)
	assert.Equal(t, mustHex(t, "0120ffff00ff1008"), data)
	assert.Equal(t, len(data), npdu.Len())
}

func TestBareHeaderNPDURoundTrip(t *testing.T) {
	npdu := &NPDU{Version: ProtocolVersion}
	data, err := npdu.EncodeBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00}, data)

	back, err := DecodeNPDU(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), back.Version)
	assert.Nil(t, back.Destination)
	assert.Nil(t, back.Source)
	assert.False(t, back.ExpectingReply)
	assert.Equal(t, PriorityNormal, back.Priority)
	assert.False(t, back.IsNetworkMessage())
	assert.Nil(t, back.Content)
}

func TestEncodeDestinationWithAddress(t *testing.T) {
	npdu := &NPDU{
		Version: ProtocolVersion,
		Destination: &Destination{
			Net:      0x126,
			Addr:     make([]byte, 16),
			HopCount: 255,
		},
	}

	data, err := npdu.EncodeBytes()
	require.NoError(t, err)

	want := append([]byte{0x01, 0x20, 0x01, 0x26, 0x10}, make([]byte, 16)...)
	want = append(want, 0xFF)
	assert.Equal(t, want, data)

	back, err := DecodeNPDU(data)
	require.NoError(t, err)
	assert.Equal(t, npdu.Destination, back.Destination)
	assert.Nil(t, back.Content)
}

func TestDecodeLocalNPDU(t *testing.T) {
	npdu, err := DecodeNPDU(mustHex(t, "01001008"))
	require.NoError(t, err)
	assert.Equal(t, uint8(1), npdu.Version)
	assert.Nil(t, npdu.Destination)
	assert.Nil(t, npdu.Source)
	assert.False(t, npdu.ExpectingReply)
	assert.Equal(t, PriorityNormal, npdu.Priority)
	assert.False(t, npdu.IsNetworkMessage())

	apdu, ok := npdu.Content.(*application.APDU)
	require.True(t, ok)
	assert.Equal(t, application.PDUTypeUnconfirmedRequest, apdu.Type)
	assert.Equal(t, uint8(application.ServiceWhoIs), apdu.ServiceChoice)
}

func TestDecodeRoutedNPDU(t *testing.T) {
	// Destination net 10 with a 6-byte address, source net 20 with a 1-byte
	// address, hop count after the source block.
	npdu, err := DecodeNPDU(mustHex(t, "012c000a06c0a80101bac000140101631008"))
	require.NoError(t, err)
	require.NotNil(t, npdu.Destination)
	assert.Equal(t, uint16(10), npdu.Destination.Net)
	assert.Equal(t, mustHex(t, "c0a80101bac0"), npdu.Destination.Addr)
	assert.Equal(t, uint8(0x63), npdu.Destination.HopCount)
	require.NotNil(t, npdu.Source)
	assert.Equal(t, uint16(20), npdu.Source.Net)
	assert.Equal(t, []byte{0x01}, npdu.Source.Addr)
	assert.True(t, npdu.ExpectingReply)
}

func TestNPDURoundTripWithRouting(t *testing.T) {
	npdu := whoIsNPDU(t)
	npdu.Destination = &Destination{Net: 10, Addr: mustHex(t, "c0a80101bac0"), HopCount: 99}
	npdu.Source = &Source{Net: 20, Addr: []byte{0x01}}
	npdu.ExpectingReply = true
	npdu.Priority = PriorityUrgent

	data, err := npdu.EncodeBytes()
	require.NoError(t, err)
	assert.Equal(t, npdu.Len(), len(data))

	back, err := DecodeNPDU(data)
	require.NoError(t, err)
	assert.Equal(t, npdu.Destination, back.Destination)
	assert.Equal(t, npdu.Source, back.Source)
	assert.True(t, back.ExpectingReply)
	assert.Equal(t, PriorityUrgent, back.Priority)
}

func TestDecodeNPDUTruncated(t *testing.T) {
	_, err := DecodeNPDU(nil)
	assert.ErrorIs(t, err, encoding.ErrTruncated)
	_, err = DecodeNPDU([]byte{0x01})
	assert.ErrorIs(t, err, encoding.ErrTruncated)

	// Destination flag set but no block follows.
	_, err = DecodeNPDU([]byte{0x01, 0x20})
	assert.ErrorIs(t, err, encoding.ErrTruncated)

	// Address length runs past the buffer.
	_, err = DecodeNPDU([]byte{0x01, 0x20, 0x00, 0x0A, 0x06, 0x01})
	assert.ErrorIs(t, err, encoding.ErrMalformedLength)

	// Complete destination block but the hop count is missing.
	_, err = DecodeNPDU([]byte{0x01, 0x20, 0xFF, 0xFF, 0x00})
	assert.ErrorIs(t, err, encoding.ErrTruncated)
}

func TestNetworkMessageRoundTrip(t *testing.T) {
	msg := &Message{Type: MessageWhoIsRouterToNetwork, Data: []byte{0x00, 0x0A}}
	npdu := New(msg)
	assert.True(t, npdu.IsNetworkMessage())

	data, err := npdu.EncodeBytes()
	require.NoError(t, err)
	assert.Equal(t, mustHex(t, "018000000a"), data)
	assert.Equal(t, npdu.Len(), len(data))

	back, err := DecodeNPDU(data)
	require.NoError(t, err)
	gotMsg, ok := back.Content.(*Message)
	require.True(t, ok)
	assert.Equal(t, msg.Type, gotMsg.Type)
	assert.Equal(t, msg.Data, gotMsg.Data)
}

func TestProprietaryMessageCarriesVendorID(t *testing.T) {
	msg := &Message{Type: 0x90, VendorID: 15, Data: []byte{0xDE, 0xAD}}
	npdu := New(msg)

	data, err := npdu.EncodeBytes()
	require.NoError(t, err)
	assert.Equal(t, mustHex(t, "018090000fdead"), data)

	back, err := DecodeMessage(data[2:])
	require.NoError(t, err)
	assert.True(t, back.Type.Proprietary())
	assert.Equal(t, uint16(15), back.VendorID)
	assert.Equal(t, []byte{0xDE, 0xAD}, back.Data)
}

func TestDecodeMessageReservedType(t *testing.T) {
	_, err := DecodeMessage([]byte{0x14})
	assert.ErrorIs(t, err, ErrUnsupportedMessage)
	_, err = DecodeMessage([]byte{0x7F, 0x00})
	assert.ErrorIs(t, err, ErrUnsupportedMessage)
}

func TestDecodeMessageTruncated(t *testing.T) {
	_, err := DecodeMessage(nil)
	assert.ErrorIs(t, err, encoding.ErrTruncated)

	// Proprietary type without its vendor id.
	_, err = DecodeMessage([]byte{0x80, 0x00})
	assert.ErrorIs(t, err, encoding.ErrTruncated)
}
