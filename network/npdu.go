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

// Package network implements the BACnet network layer: the NPDU header with
// its optional routing blocks, and network layer messages.
package network

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/edgeo-scada/bacnet/application"
	"github.com/edgeo-scada/bacnet/encoding"
)

// Control octet bit assignments (6.2.2).
const (
	controlNetworkMessage = 1 << 7
	controlHasDestination = 1 << 5
	controlHasSource      = 1 << 3
	controlExpectingReply = 1 << 2
	controlPriorityMask   = 0x03
)

// ProtocolVersion is the network layer protocol version this implementation
// emits.
const ProtocolVersion = 1

// GlobalBroadcast is the destination network number addressing every
// network.
const GlobalBroadcast uint16 = 0xFFFF

// Priority is the network priority carried in the low two bits of the
// control octet.
type Priority uint8

const (
	PriorityNormal     Priority = 0
	PriorityUrgent     Priority = 1
	PriorityCritical   Priority = 2
	PriorityLifeSafety Priority = 3
)

func (p Priority) String() string {
	switch p {
	case PriorityNormal:
		return "normal"
	case PriorityUrgent:
		return "urgent"
	case PriorityCritical:
		return "critical-equipment"
	case PriorityLifeSafety:
		return "life-safety"
	default:
		return fmt.Sprintf("priority(%d)", uint8(p))
	}
}

// Destination is the optional routed-destination block. HopCount sits after
// the source block on the wire but belongs to the destination; it is only
// present when the destination is.
type Destination struct {
	Net      uint16
	Addr     []byte // empty means broadcast on the destination network
	HopCount uint8
}

// Source is the optional routed-source block.
type Source struct {
	Net  uint16
	Addr []byte
}

// Content is the payload carried behind the NPDU header: an application
// APDU or a network layer Message, depending on the control octet.
type Content interface {
	Encode(w io.Writer) error
	Len() int
}

// NPDU is the network layer envelope.
type NPDU struct {
	Version        uint8
	Destination    *Destination
	Source         *Source
	ExpectingReply bool
	Priority       Priority
	Content        Content
}

// New builds a local-network NPDU around content with the current protocol
// version and normal priority.
func New(content Content) *NPDU {
	return &NPDU{Version: ProtocolVersion, Content: content}
}

// IsNetworkMessage reports whether the content is a network layer message
// rather than an APDU.
func (n *NPDU) IsNetworkMessage() bool {
	_, ok := n.Content.(*Message)
	return ok
}

func (n *NPDU) control() byte {
	c := byte(n.Priority) & controlPriorityMask
	if n.IsNetworkMessage() {
		c |= controlNetworkMessage
	}
	if n.Destination != nil {
		c |= controlHasDestination
	}
	if n.Source != nil {
		c |= controlHasSource
	}
	if n.ExpectingReply {
		c |= controlExpectingReply
	}
	return c
}

// Encode writes the NPDU to w. The optional blocks appear in wire order:
// destination, source, then hop count.
func (n *NPDU) Encode(w io.Writer) error {
	buf := make([]byte, 0, n.headerLen())
	buf = append(buf, n.Version, n.control())
	if n.Destination != nil {
		buf = binary.BigEndian.AppendUint16(buf, n.Destination.Net)
		buf = append(buf, byte(len(n.Destination.Addr)))
		buf = append(buf, n.Destination.Addr...)
	}
	if n.Source != nil {
		buf = binary.BigEndian.AppendUint16(buf, n.Source.Net)
		buf = append(buf, byte(len(n.Source.Addr)))
		buf = append(buf, n.Source.Addr...)
	}
	if n.Destination != nil {
		buf = append(buf, n.Destination.HopCount)
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}
	if n.Content != nil {
		return n.Content.Encode(w)
	}
	return nil
}

func (n *NPDU) headerLen() int {
	size := 2
	if n.Destination != nil {
		size += 3 + len(n.Destination.Addr) + 1 // DNET, DLEN, DADR, hop count
	}
	if n.Source != nil {
		size += 3 + len(n.Source.Addr)
	}
	return size
}

// Len returns the encoded size in bytes, header and content together.
func (n *NPDU) Len() int {
	size := n.headerLen()
	if n.Content != nil {
		size += n.Content.Len()
	}
	return size
}

// EncodeBytes returns the encoded NPDU as a fresh slice.
func (n *NPDU) EncodeBytes() ([]byte, error) {
	buf := newFixedBuffer(n.Len())
	if err := n.Encode(buf); err != nil {
		return nil, err
	}
	return buf.bytes(), nil
}

// DecodeNPDU decodes an NPDU and its content. Address bytes are copied out
// of data; the content keeps aliasing it. A header with nothing behind it
// yields a nil Content, matching what Encode emits for one.
func DecodeNPDU(data []byte) (*NPDU, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: npdu needs at least 2 bytes, got %d", encoding.ErrTruncated, len(data))
	}

	n := &NPDU{Version: data[0]}
	control := data[1]
	n.ExpectingReply = control&controlExpectingReply != 0
	n.Priority = Priority(control & controlPriorityMask)
	offset := 2

	if control&controlHasDestination != 0 {
		dest, consumed, err := decodeRoutingBlock(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("npdu destination: %w", err)
		}
		n.Destination = &Destination{Net: dest.Net, Addr: dest.Addr}
		offset += consumed
	}

	if control&controlHasSource != 0 {
		src, consumed, err := decodeRoutingBlock(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("npdu source: %w", err)
		}
		n.Source = &src
		offset += consumed
	}

	if n.Destination != nil {
		if offset >= len(data) {
			return nil, fmt.Errorf("%w: npdu hop count", encoding.ErrTruncated)
		}
		n.Destination.HopCount = data[offset]
		offset++
	}

	if control&controlNetworkMessage != 0 {
		msg, err := DecodeMessage(data[offset:])
		if err != nil {
			return nil, err
		}
		n.Content = msg
	} else if offset < len(data) {
		apdu, err := application.DecodeAPDU(data[offset:])
		if err != nil {
			return nil, err
		}
		n.Content = apdu
	}

	return n, nil
}

// decodeRoutingBlock reads a NET/LEN/ADR triple, copying the address bytes.
func decodeRoutingBlock(data []byte) (Source, int, error) {
	if len(data) < 3 {
		return Source{}, 0, fmt.Errorf("%w: routing block", encoding.ErrTruncated)
	}
	net := binary.BigEndian.Uint16(data[:2])
	addrLen := int(data[2])
	if len(data) < 3+addrLen {
		return Source{}, 0, fmt.Errorf("%w: address declares %d bytes, %d remaining",
			encoding.ErrMalformedLength, addrLen, len(data)-3)
	}
	addr := make([]byte, addrLen)
	copy(addr, data[3:3+addrLen])
	return Source{Net: net, Addr: addr}, 3 + addrLen, nil
}

// fixedBuffer is a non-growing io.Writer over a preallocated slice, used to
// keep EncodeBytes to a single allocation sized by Len.
type fixedBuffer struct {
	buf []byte
}

func newFixedBuffer(size int) *fixedBuffer {
	return &fixedBuffer{buf: make([]byte, 0, size)}
}

func (b *fixedBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *fixedBuffer) bytes() []byte { return b.buf }
