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
	"encoding/binary"
	"fmt"

	"github.com/edgeo-scada/bacnet/application"
	"github.com/edgeo-scada/bacnet/encoding"
)

// NPDUSlice is a zero-copy view over an encoded NPDU. Construction walks the
// optional routing blocks once to locate the payload; accessors then read
// straight from the buffer without copying.
type NPDUSlice struct {
	data          []byte
	payloadOffset int
}

// NPDUSliceFrom validates the header layout and wraps data without copying.
func NPDUSliceFrom(data []byte) (NPDUSlice, error) {
	if len(data) < 2 {
		return NPDUSlice{}, fmt.Errorf("%w: npdu needs at least 2 bytes, got %d", encoding.ErrTruncated, len(data))
	}
	control := data[1]
	offset := 2

	skipBlock := func() error {
		if len(data) < offset+3 {
			return fmt.Errorf("%w: routing block", encoding.ErrTruncated)
		}
		addrLen := int(data[offset+2])
		if len(data) < offset+3+addrLen {
			return fmt.Errorf("%w: address declares %d bytes, %d remaining",
				encoding.ErrMalformedLength, addrLen, len(data)-offset-3)
		}
		offset += 3 + addrLen
		return nil
	}

	if control&controlHasDestination != 0 {
		if err := skipBlock(); err != nil {
			return NPDUSlice{}, fmt.Errorf("npdu destination: %w", err)
		}
	}
	if control&controlHasSource != 0 {
		if err := skipBlock(); err != nil {
			return NPDUSlice{}, fmt.Errorf("npdu source: %w", err)
		}
	}
	if control&controlHasDestination != 0 {
		if offset >= len(data) {
			return NPDUSlice{}, fmt.Errorf("%w: npdu hop count", encoding.ErrTruncated)
		}
		offset++
	}

	return NPDUSlice{data: data, payloadOffset: offset}, nil
}

// Version returns the protocol version octet.
func (s NPDUSlice) Version() uint8 { return s.data[0] }

// Control returns the raw control octet.
func (s NPDUSlice) Control() uint8 { return s.data[1] }

// IsNetworkMessage reports whether the payload is a network layer message.
func (s NPDUSlice) IsNetworkMessage() bool {
	return s.data[1]&controlNetworkMessage != 0
}

// ExpectingReply returns the expecting-reply control bit.
func (s NPDUSlice) ExpectingReply() bool {
	return s.data[1]&controlExpectingReply != 0
}

// Priority returns the network priority.
func (s NPDUSlice) Priority() Priority {
	return Priority(s.data[1] & controlPriorityMask)
}

// Destination returns the routed-destination block, if present. Addr aliases
// the underlying buffer.
func (s NPDUSlice) Destination() (*Destination, bool) {
	if s.data[1]&controlHasDestination == 0 {
		return nil, false
	}
	return &Destination{
		Net:      binary.BigEndian.Uint16(s.data[2:4]),
		Addr:     s.data[5 : 5+int(s.data[4])],
		HopCount: s.data[s.payloadOffset-1],
	}, true
}

// Source returns the routed-source block, if present. Addr aliases the
// underlying buffer.
func (s NPDUSlice) Source() (*Source, bool) {
	if s.data[1]&controlHasSource == 0 {
		return nil, false
	}
	offset := 2
	if s.data[1]&controlHasDestination != 0 {
		offset += 3 + int(s.data[4])
	}
	return &Source{
		Net:  binary.BigEndian.Uint16(s.data[offset : offset+2]),
		Addr: s.data[offset+3 : offset+3+int(s.data[offset+2])],
	}, true
}

// Payload returns the still-encoded content behind the header, aliasing the
// buffer.
func (s NPDUSlice) Payload() []byte {
	return s.data[s.payloadOffset:]
}

// APDU returns the payload as an APDU view. Fails on network messages.
func (s NPDUSlice) APDU() (application.APDUSlice, error) {
	if s.IsNetworkMessage() {
		return nil, fmt.Errorf("%w: npdu carries a network message", application.ErrUnsupportedService)
	}
	return application.APDUSliceFrom(s.Payload())
}

// Message decodes the payload as a network layer message. Fails on APDUs.
func (s NPDUSlice) Message() (*Message, error) {
	if !s.IsNetworkMessage() {
		return nil, fmt.Errorf("%w: npdu carries an apdu", ErrUnsupportedMessage)
	}
	return DecodeMessage(s.Payload())
}

// ToOwned converts the view into an owned NPDU, copying variable fields.
func (s NPDUSlice) ToOwned() (*NPDU, error) {
	return DecodeNPDU(s.data)
}
