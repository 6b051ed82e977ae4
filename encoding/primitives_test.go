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

package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeUnsignedNarrowest(t *testing.T) {
	assert.Equal(t, []byte{0x00}, EncodeUnsigned(0))
	assert.Equal(t, []byte{0xFF}, EncodeUnsigned(255))
	assert.Equal(t, []byte{0x01, 0x00}, EncodeUnsigned(256))
	assert.Equal(t, []byte{0xFF, 0xFF}, EncodeUnsigned(65535))
	assert.Equal(t, []byte{0x01, 0x00, 0x00}, EncodeUnsigned(65536))
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, EncodeUnsigned(1<<24))
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, EncodeUnsigned(0xFFFFFFFF))
}

func TestDecodeUnsigned(t *testing.T) {
	for _, v := range []uint32{0, 1, 72, 255, 256, 1024, 65535, 65536, 1 << 24, 0xFFFFFFFF} {
		got, err := DecodeUnsigned(EncodeUnsigned(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	_, err := DecodeUnsigned(nil)
	assert.ErrorIs(t, err, ErrMalformedLength)
	_, err = DecodeUnsigned([]byte{1, 2, 3, 4, 5})
	assert.ErrorIs(t, err, ErrMalformedLength)
}

func TestSignedRoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 127, -128, 128, -129, 32767, -32768,
		32768, 8388607, -8388608, 8388608, 2147483647, -2147483648} {
		got, err := DecodeSigned(EncodeSigned(v))
		require.NoError(t, err)
		assert.Equal(t, v, got, "value %d", v)
	}
}

func TestSignedWidths(t *testing.T) {
	assert.Len(t, EncodeSigned(-1), 1)
	assert.Len(t, EncodeSigned(-128), 1)
	assert.Len(t, EncodeSigned(-129), 2)
	assert.Len(t, EncodeSigned(128), 2)
	assert.Len(t, EncodeSigned(-8388609), 4)
}

func TestRealDouble(t *testing.T) {
	got, err := DecodeReal(EncodeReal(72.5))
	require.NoError(t, err)
	assert.Equal(t, float32(72.5), got)

	gotD, err := DecodeDouble(EncodeDouble(-0.25))
	require.NoError(t, err)
	assert.Equal(t, -0.25, gotD)

	_, err = DecodeReal([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrMalformedLength)
	_, err = DecodeDouble([]byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrMalformedLength)
}

func TestCharacterString(t *testing.T) {
	data := EncodeCharacterString("Boiler-1")
	assert.Equal(t, byte(0), data[0])

	s, err := DecodeCharacterString(data)
	require.NoError(t, err)
	assert.Equal(t, "Boiler-1", s)

	_, err = DecodeCharacterString(nil)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestEncodeBooleanTag(t *testing.T) {
	assert.Equal(t, []byte{0x11}, EncodeBooleanTag(true))
	assert.Equal(t, []byte{0x10}, EncodeBooleanTag(false))
}

func TestEncodeUnsignedTag(t *testing.T) {
	// Application unsigned 72 is the canonical two-byte example.
	assert.Equal(t, []byte{0x21, 0x48}, EncodeUnsignedTag(72))
	assert.Equal(t, []byte{0x22, 0x04, 0x00}, EncodeUnsignedTag(1024))
}

func TestEncodeEnumeratedTag(t *testing.T) {
	assert.Equal(t, []byte{0x91, 0x00}, EncodeEnumeratedTag(0))
	assert.Equal(t, []byte{0x91, 0x03}, EncodeEnumeratedTag(3))
}

func TestEncodeObjectIdentifierTag(t *testing.T) {
	oid := NewObjectIdentifier(ObjectTypeDevice, 599)
	data := EncodeObjectIdentifierTag(oid)
	assert.Equal(t, []byte{0xC4, 0x02, 0x00, 0x02, 0x57}, data)

	tag, n, err := DecodeTag(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, TagObjectID, tag.AppTag())

	back, err := DecodeObjectIdentifierFromBytes(tag.Data)
	require.NoError(t, err)
	assert.Equal(t, oid, back)
}

func TestObjectIdentifierInstanceMask(t *testing.T) {
	// Instances wider than 22 bits are masked on encode.
	oid := ObjectIdentifier{Type: ObjectTypeDevice, Instance: 0x00FFFFFF}
	back := DecodeObjectIdentifier(oid.Encode())
	assert.Equal(t, uint32(0x3FFFFF), back.Instance)
	assert.Equal(t, ObjectTypeDevice, back.Type)
}

func TestEncodeContextUnsigned(t *testing.T) {
	// Context tag 0 with a one-byte value, the shape used by range bounds.
	assert.Equal(t, []byte{0x09, 0x07}, EncodeContextUnsigned(0, 7))
	assert.Equal(t, []byte{0x1A, 0x0B, 0xB8}, EncodeContextUnsigned(1, 3000))
}
