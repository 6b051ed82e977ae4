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
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeUnsigned encodes an unsigned integer in the fewest bytes
func EncodeUnsigned(value uint32) []byte {
	switch {
	case value < 0x100:
		return []byte{byte(value)}
	case value < 0x10000:
		return []byte{byte(value >> 8), byte(value)}
	case value < 0x1000000:
		return []byte{byte(value >> 16), byte(value >> 8), byte(value)}
	default:
		return []byte{byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value)}
	}
}

// DecodeUnsigned decodes a 1-4 byte unsigned integer
func DecodeUnsigned(data []byte) (uint32, error) {
	switch len(data) {
	case 1:
		return uint32(data[0]), nil
	case 2:
		return uint32(binary.BigEndian.Uint16(data)), nil
	case 3:
		return uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2]), nil
	case 4:
		return binary.BigEndian.Uint32(data), nil
	default:
		return 0, fmt.Errorf("%w: unsigned integer of %d bytes", ErrMalformedLength, len(data))
	}
}

// EncodeSigned encodes a signed integer in the fewest bytes (2's complement)
func EncodeSigned(value int32) []byte {
	switch {
	case value >= -128 && value < 128:
		return []byte{byte(value)}
	case value >= -32768 && value < 32768:
		return []byte{byte(value >> 8), byte(value)}
	case value >= -8388608 && value < 8388608:
		return []byte{byte(value >> 16), byte(value >> 8), byte(value)}
	default:
		return []byte{byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value)}
	}
}

// DecodeSigned decodes a 1-4 byte signed integer
func DecodeSigned(data []byte) (int32, error) {
	switch len(data) {
	case 1:
		return int32(int8(data[0])), nil
	case 2:
		return int32(int16(binary.BigEndian.Uint16(data))), nil
	case 3:
		v := uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2])
		if data[0]&0x80 != 0 {
			v |= 0xFF000000
		}
		return int32(v), nil
	case 4:
		return int32(binary.BigEndian.Uint32(data)), nil
	default:
		return 0, fmt.Errorf("%w: signed integer of %d bytes", ErrMalformedLength, len(data))
	}
}

// EncodeReal encodes an IEEE-754 single precision float
func EncodeReal(value float32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, math.Float32bits(value))
	return buf
}

// DecodeReal decodes an IEEE-754 single precision float
func DecodeReal(data []byte) (float32, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("%w: real of %d bytes", ErrMalformedLength, len(data))
	}
	return math.Float32frombits(binary.BigEndian.Uint32(data)), nil
}

// EncodeDouble encodes an IEEE-754 double precision float
func EncodeDouble(value float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(value))
	return buf
}

// DecodeDouble decodes an IEEE-754 double precision float
func DecodeDouble(data []byte) (float64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: double of %d bytes", ErrMalformedLength, len(data))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(data)), nil
}

// EncodeCharacterString encodes a character string with the UTF-8
// character set marker
func EncodeCharacterString(s string) []byte {
	data := make([]byte, 1+len(s))
	data[0] = 0 // UTF-8
	copy(data[1:], s)
	return data
}

// DecodeCharacterString decodes a character string, skipping the character
// set byte
func DecodeCharacterString(data []byte) (string, error) {
	if len(data) < 1 {
		return "", fmt.Errorf("%w: character string missing charset byte", ErrTruncated)
	}
	return string(data[1:]), nil
}

// EncodeBooleanTag encodes a boolean with application tag; the value lives
// in the selector bits, so the tag is the whole encoding
func EncodeBooleanTag(value bool) []byte {
	if value {
		return []byte{byte(TagBoolean)<<4 | 0x01}
	}
	return []byte{byte(TagBoolean) << 4}
}

// EncodeUnsignedTag encodes an unsigned integer with application tag
func EncodeUnsignedTag(value uint32) []byte {
	data := EncodeUnsigned(value)
	return append(EncodeTag(uint8(TagUnsignedInt), TagClassApplication, uint32(len(data))), data...)
}

// EncodeEnumeratedTag encodes an enumerated value with application tag
func EncodeEnumeratedTag(value uint32) []byte {
	data := EncodeUnsigned(value)
	return append(EncodeTag(uint8(TagEnumerated), TagClassApplication, uint32(len(data))), data...)
}

// EncodeRealTag encodes a float32 with application tag
func EncodeRealTag(value float32) []byte {
	return append(EncodeTag(uint8(TagReal), TagClassApplication, 4), EncodeReal(value)...)
}

// EncodeObjectIdentifierTag encodes an object identifier with application tag
func EncodeObjectIdentifierTag(oid ObjectIdentifier) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, oid.Encode())
	return append(EncodeTag(uint8(TagObjectID), TagClassApplication, 4), buf...)
}

// EncodeCharacterStringTag encodes a character string with application tag
func EncodeCharacterStringTag(s string) []byte {
	data := EncodeCharacterString(s)
	return append(EncodeTag(uint8(TagCharacterString), TagClassApplication, uint32(len(data))), data...)
}

// EncodeContextTag encodes a context-specific tag followed by data
func EncodeContextTag(number uint8, data []byte) []byte {
	return append(EncodeTag(number, TagClassContext, uint32(len(data))), data...)
}

// EncodeContextUnsigned encodes an unsigned integer with context tag
func EncodeContextUnsigned(number uint8, value uint32) []byte {
	return EncodeContextTag(number, EncodeUnsigned(value))
}

// EncodeContextEnumerated encodes an enumerated value with context tag
func EncodeContextEnumerated(number uint8, value uint32) []byte {
	return EncodeContextTag(number, EncodeUnsigned(value))
}
