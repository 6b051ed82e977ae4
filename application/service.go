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

package application

import (
	"fmt"

	"github.com/edgeo-scada/bacnet/encoding"
)

// Segmentation reports a device's segmentation support, announced in I-Am.
type Segmentation uint8

const (
	SegmentedBoth     Segmentation = 0
	SegmentedTransmit Segmentation = 1
	SegmentedReceive  Segmentation = 2
	NoSegmentation    Segmentation = 3
)

func (s Segmentation) String() string {
	switch s {
	case SegmentedBoth:
		return "segmented-both"
	case SegmentedTransmit:
		return "segmented-transmit"
	case SegmentedReceive:
		return "segmented-receive"
	case NoSegmentation:
		return "no-segmentation"
	default:
		return fmt.Sprintf("segmentation(%d)", uint8(s))
	}
}

// UnconfirmedService is a decodable/encodable unconfirmed service payload.
type UnconfirmedService interface {
	Choice() UnconfirmedServiceChoice
	AppendTo(buf []byte) ([]byte, error)
	Len() int
}

// DecodeUnconfirmedService decodes the content bytes of an unconfirmed
// request for the given service choice.
func DecodeUnconfirmedService(choice UnconfirmedServiceChoice, content []byte) (UnconfirmedService, error) {
	switch choice {
	case ServiceWhoIs:
		return DecodeWhoIs(content)
	case ServiceIAm:
		return DecodeIAm(content)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedService, choice)
	}
}

// InstanceRange bounds which device instances shall answer a Who-Is.
type InstanceRange struct {
	Low  uint32
	High uint32
}

// WhoIs asks devices to announce themselves. A nil Limits addresses every
// device on the network.
type WhoIs struct {
	Limits *InstanceRange
}

func (w *WhoIs) Choice() UnconfirmedServiceChoice { return ServiceWhoIs }

// AppendTo appends the encoded service content. The range limits are a pair
// of context tags and are encoded together or not at all.
func (w *WhoIs) AppendTo(buf []byte) ([]byte, error) {
	if w.Limits == nil {
		return buf, nil
	}
	buf = append(buf, encoding.EncodeContextUnsigned(0, w.Limits.Low)...)
	buf = append(buf, encoding.EncodeContextUnsigned(1, w.Limits.High)...)
	return buf, nil
}

func (w *WhoIs) Len() int {
	if w.Limits == nil {
		return 0
	}
	n := 0
	n += 1 + len(encoding.EncodeUnsigned(w.Limits.Low))
	n += 1 + len(encoding.EncodeUnsigned(w.Limits.High))
	return n
}

// Matches reports whether a device instance falls inside the range limits.
func (w *WhoIs) Matches(instance uint32) bool {
	if w.Limits == nil {
		return true
	}
	return instance >= w.Limits.Low && instance <= w.Limits.High
}

// DecodeWhoIs decodes Who-Is content. Empty content means no range limits;
// otherwise both bounds must be present as context tags 0 and 1.
func DecodeWhoIs(content []byte) (*WhoIs, error) {
	if len(content) == 0 {
		return &WhoIs{}, nil
	}

	low, n, err := decodeContextUnsigned(content, 0)
	if err != nil {
		return nil, fmt.Errorf("who-is low limit: %w", err)
	}
	high, m, err := decodeContextUnsigned(content[n:], 1)
	if err != nil {
		return nil, fmt.Errorf("who-is high limit: %w", err)
	}
	if n+m != len(content) {
		return nil, fmt.Errorf("%w: %d trailing bytes after who-is limits",
			encoding.ErrMalformedLength, len(content)-n-m)
	}
	return &WhoIs{Limits: &InstanceRange{Low: low, High: high}}, nil
}

// IAm announces a device's identity and capabilities.
type IAm struct {
	Device       encoding.ObjectIdentifier
	MaxAPDU      uint16
	Segmentation Segmentation
	VendorID     uint16
}

func (i *IAm) Choice() UnconfirmedServiceChoice { return ServiceIAm }

// AppendTo appends the encoded service content: device identifier, maximum
// APDU length, segmentation support and vendor identifier, in that order.
func (i *IAm) AppendTo(buf []byte) ([]byte, error) {
	buf = append(buf, encoding.EncodeObjectIdentifierTag(i.Device)...)
	buf = append(buf, encoding.EncodeUnsignedTag(uint32(i.MaxAPDU))...)
	buf = append(buf, encoding.EncodeEnumeratedTag(uint32(i.Segmentation))...)
	buf = append(buf, encoding.EncodeUnsignedTag(uint32(i.VendorID))...)
	return buf, nil
}

func (i *IAm) Len() int {
	n := 5 // object identifier tag
	n += 1 + len(encoding.EncodeUnsigned(uint32(i.MaxAPDU)))
	n += 1 + len(encoding.EncodeUnsigned(uint32(i.Segmentation)))
	n += 1 + len(encoding.EncodeUnsigned(uint32(i.VendorID)))
	return n
}

// DecodeIAm decodes I-Am content.
func DecodeIAm(content []byte) (*IAm, error) {
	var iam IAm
	offset := 0

	tag, n, err := decodeAppTag(content, encoding.TagObjectID)
	if err != nil {
		return nil, fmt.Errorf("i-am device identifier: %w", err)
	}
	offset += n
	iam.Device, err = encoding.DecodeObjectIdentifierFromBytes(tag.Data)
	if err != nil {
		return nil, err
	}

	tag, n, err = decodeAppTag(content[offset:], encoding.TagUnsignedInt)
	if err != nil {
		return nil, fmt.Errorf("i-am max apdu: %w", err)
	}
	offset += n
	maxAPDU, err := encoding.DecodeUnsigned(tag.Data)
	if err != nil {
		return nil, err
	}
	iam.MaxAPDU = uint16(maxAPDU)

	tag, n, err = decodeAppTag(content[offset:], encoding.TagEnumerated)
	if err != nil {
		return nil, fmt.Errorf("i-am segmentation: %w", err)
	}
	offset += n
	seg, err := encoding.DecodeUnsigned(tag.Data)
	if err != nil {
		return nil, err
	}
	iam.Segmentation = Segmentation(seg)

	tag, _, err = decodeAppTag(content[offset:], encoding.TagUnsignedInt)
	if err != nil {
		return nil, fmt.Errorf("i-am vendor id: %w", err)
	}
	vendor, err := encoding.DecodeUnsigned(tag.Data)
	if err != nil {
		return nil, err
	}
	iam.VendorID = uint16(vendor)

	return &iam, nil
}

func decodeAppTag(data []byte, want encoding.ApplicationTag) (encoding.Tag, int, error) {
	tag, n, err := encoding.DecodeTag(data)
	if err != nil {
		return encoding.Tag{}, 0, err
	}
	if tag.Class != encoding.TagClassApplication || tag.AppTag() != want {
		return encoding.Tag{}, 0, fmt.Errorf("%w: expected %s tag, got %s %s",
			encoding.ErrMalformedLength, want, tag.Class, tag.AppTag())
	}
	return tag, n, nil
}

func decodeContextUnsigned(data []byte, number uint8) (uint32, int, error) {
	tag, n, err := encoding.DecodeTag(data)
	if err != nil {
		return 0, 0, err
	}
	if tag.Class != encoding.TagClassContext || tag.Number != number {
		return 0, 0, fmt.Errorf("%w: expected context tag %d",
			encoding.ErrMalformedLength, number)
	}
	value, err := encoding.DecodeUnsigned(tag.Data)
	if err != nil {
		return 0, 0, err
	}
	return value, n, nil
}
