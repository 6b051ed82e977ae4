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
)

// Tag octet layout (20.2.1): top nibble is the tag number (0b1111 escapes to
// an extended number in the next octet), bit 3 is the class, and the low 3
// bits select how the remainder is interpreted.
const (
	lvtMask           = 0x07
	classBit          = 0x08
	extendedTagNumber = 0x0F

	lvtExtendedLength = 0x05
	lvtOpening        = 0x06
	lvtClosing        = 0x07

	// Extended-length tier markers (20.2.1.3.1)
	extendedLength16 = 254
	extendedLength32 = 255
)

// LVT is the decoded interpretation of a tag's length/value/type selector.
type LVT uint8

const (
	// LVTLength means the tag carries Length bytes of data.
	LVTLength LVT = iota
	// LVTValue means the selector bits are themselves the value
	// (application-class Boolean only).
	LVTValue
	// LVTOpening marks the start of constructed/context-wrapped data.
	LVTOpening
	// LVTClosing marks the end of constructed/context-wrapped data.
	LVTClosing
)

func (l LVT) String() string {
	switch l {
	case LVTLength:
		return "length"
	case LVTValue:
		return "value"
	case LVTOpening:
		return "opening"
	case LVTClosing:
		return "closing"
	default:
		return fmt.Sprintf("lvt(%d)", uint8(l))
	}
}

// Tag is one decoded tag-length-value unit. Data borrows from the decode
// input and must not outlive it; callers that keep a Tag past the buffer's
// lifetime must copy Data out first.
type Tag struct {
	Number uint8
	Class  TagClass
	LVT    LVT
	Length uint32 // valid when LVT == LVTLength
	Value  uint8  // valid when LVT == LVTValue
	Data   []byte // len(Data) == Length; empty for Value/Opening/Closing
}

// AppTag returns the tag number interpreted as an application tag. Only
// meaningful when Class is TagClassApplication.
func (t Tag) AppTag() ApplicationTag {
	return ApplicationTag(t.Number)
}

// DecodeTag decodes one tag from the front of data and returns it together
// with the number of bytes consumed (header plus data).
func DecodeTag(data []byte) (Tag, int, error) {
	if len(data) < 1 {
		return Tag{}, 0, fmt.Errorf("%w: empty tag", ErrTruncated)
	}

	first := data[0]
	n := 1

	// 20.2.1.2 Tag Number
	number := first >> 4
	if number == extendedTagNumber {
		if len(data) < 2 {
			return Tag{}, 0, fmt.Errorf("%w: extended tag number", ErrTruncated)
		}
		number = data[1]
		n = 2
	}

	// 20.2.1.1 Class
	class := TagClassApplication
	if first&classBit != 0 {
		class = TagClassContext
	}

	tag := Tag{Number: number, Class: class}

	// 20.2.1.3 Length/Value/Type
	lvt := first & lvtMask
	switch {
	case class == TagClassApplication && ApplicationTag(number) == TagBoolean:
		// Boolean packs its value into the selector bits; it never
		// carries a length.
		tag.LVT = LVTValue
		tag.Value = lvt
	case lvt < lvtExtendedLength:
		tag.LVT = LVTLength
		tag.Length = uint32(lvt)
	case lvt == lvtExtendedLength:
		length, consumed, err := decodeExtendedLength(data[n:])
		if err != nil {
			return Tag{}, 0, err
		}
		tag.LVT = LVTLength
		tag.Length = length
		n += consumed
	case lvt == lvtOpening:
		tag.LVT = LVTOpening
	default:
		tag.LVT = LVTClosing
	}

	if tag.LVT == LVTLength {
		if uint64(tag.Length) > uint64(len(data)-n) {
			return Tag{}, 0, fmt.Errorf("%w: tag declares %d data bytes, %d remaining",
				ErrMalformedLength, tag.Length, len(data)-n)
		}
		tag.Data = data[n : n+int(tag.Length)]
		n += int(tag.Length)
	}

	return tag, n, nil
}

// EncodeTag encodes a tag header, choosing the narrowest representation for
// both the tag number and the length. The caller appends the data bytes.
func EncodeTag(number uint8, class TagClass, length uint32) []byte {
	buf := make([]byte, 1, 6)

	if number < extendedTagNumber {
		buf[0] = number << 4
	} else {
		buf[0] = extendedTagNumber << 4
		buf = append(buf, number)
	}

	if class == TagClassContext {
		buf[0] |= classBit
	}

	return appendTagLength(buf, length)
}

// EncodeOpeningTag encodes an opening tag for constructed data
func EncodeOpeningTag(number uint8) []byte {
	if number < extendedTagNumber {
		return []byte{number<<4 | classBit | lvtOpening}
	}
	return []byte{extendedTagNumber<<4 | classBit | lvtOpening, number}
}

// EncodeClosingTag encodes a closing tag for constructed data
func EncodeClosingTag(number uint8) []byte {
	if number < extendedTagNumber {
		return []byte{number<<4 | classBit | lvtClosing}
	}
	return []byte{extendedTagNumber<<4 | classBit | lvtClosing, number}
}

// appendTagLength writes the length into the selector bits of buf[0] when it
// fits inline, or appends the three-tier extended encoding otherwise. Kept as
// the single counterpart of decodeExtendedLength so the tiers cannot drift.
func appendTagLength(buf []byte, length uint32) []byte {
	switch {
	case length <= 4:
		buf[0] |= byte(length)
	case length <= 253:
		buf[0] |= lvtExtendedLength
		buf = append(buf, byte(length))
	case length <= 65535:
		buf[0] |= lvtExtendedLength
		buf = append(buf, extendedLength16, byte(length>>8), byte(length))
	default:
		buf[0] |= lvtExtendedLength
		buf = append(buf, extendedLength32,
			byte(length>>24), byte(length>>16), byte(length>>8), byte(length))
	}
	return buf
}

// decodeExtendedLength decodes the follow-on length of a tag whose selector
// is the extended-length marker: one byte up to 253, marker 254 plus a
// big-endian uint16, marker 255 plus a big-endian uint32.
func decodeExtendedLength(data []byte) (uint32, int, error) {
	if len(data) < 1 {
		return 0, 0, fmt.Errorf("%w: extended length", ErrTruncated)
	}
	switch b := data[0]; b {
	case extendedLength16:
		if len(data) < 3 {
			return 0, 0, fmt.Errorf("%w: 16-bit extended length", ErrTruncated)
		}
		return uint32(binary.BigEndian.Uint16(data[1:3])), 3, nil
	case extendedLength32:
		if len(data) < 5 {
			return 0, 0, fmt.Errorf("%w: 32-bit extended length", ErrTruncated)
		}
		return binary.BigEndian.Uint32(data[1:5]), 5, nil
	default:
		return uint32(b), 1, nil
	}
}
