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

// Package bacnetip implements BACnet/IP link layer framing (Annex J): the
// BVLC header that wraps every NPDU carried over UDP.
package bacnetip

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/edgeo-scada/bacnet/encoding"
	"github.com/edgeo-scada/bacnet/network"
)

// LinkTypeBACnetIP is the BVLC type octet for BACnet/IP.
const LinkTypeBACnetIP = 0x81

// headerLen is the fixed BVLC header size: type, function, 16-bit length.
const headerLen = 4

// Sentinel errors
var (
	// ErrUnsupportedLinkType is returned when the first octet is not the
	// BACnet/IP BVLC type.
	ErrUnsupportedLinkType = errors.New("bacnet: unsupported link type")

	// ErrUnsupportedFunction is returned for BVLC functions that do not
	// carry a plain NPDU.
	ErrUnsupportedFunction = errors.New("bacnet: unsupported bvlc function")
)

// Function identifies the BVLC function.
type Function uint8

const (
	FunctionResult              Function = 0x00
	FunctionWriteBDT            Function = 0x01
	FunctionReadBDT             Function = 0x02
	FunctionReadBDTAck          Function = 0x03
	FunctionForwardedNPDU       Function = 0x04
	FunctionRegisterForeign     Function = 0x05
	FunctionReadFDT             Function = 0x06
	FunctionReadFDTAck          Function = 0x07
	FunctionDeleteFDTEntry      Function = 0x08
	FunctionDistributeBroadcast Function = 0x09
	FunctionOriginalUnicast     Function = 0x0A
	FunctionOriginalBroadcast   Function = 0x0B
	FunctionSecureBVLL          Function = 0x0C
)

func (f Function) String() string {
	names := map[Function]string{
		FunctionResult:              "bvlc-result",
		FunctionWriteBDT:            "write-broadcast-distribution-table",
		FunctionReadBDT:             "read-broadcast-distribution-table",
		FunctionReadBDTAck:          "read-broadcast-distribution-table-ack",
		FunctionForwardedNPDU:       "forwarded-npdu",
		FunctionRegisterForeign:     "register-foreign-device",
		FunctionReadFDT:             "read-foreign-device-table",
		FunctionReadFDTAck:          "read-foreign-device-table-ack",
		FunctionDeleteFDTEntry:      "delete-foreign-device-table-entry",
		FunctionDistributeBroadcast: "distribute-broadcast-to-network",
		FunctionOriginalUnicast:     "original-unicast-npdu",
		FunctionOriginalBroadcast:   "original-broadcast-npdu",
		FunctionSecureBVLL:          "secure-bvll",
	}
	if name, ok := names[f]; ok {
		return name
	}
	return fmt.Sprintf("bvlc-function(0x%02X)", uint8(f))
}

// carriesNPDU reports whether the function wraps a plain NPDU directly
// behind the header.
func (f Function) carriesNPDU() bool {
	return f == FunctionOriginalUnicast || f == FunctionOriginalBroadcast
}

// BVLC is a BACnet/IP link layer frame carrying an NPDU.
type BVLC struct {
	Function Function
	NPDU     *network.NPDU
}

// NewUnicast wraps an NPDU in an original-unicast frame.
func NewUnicast(npdu *network.NPDU) *BVLC {
	return &BVLC{Function: FunctionOriginalUnicast, NPDU: npdu}
}

// NewBroadcast wraps an NPDU in an original-broadcast frame.
func NewBroadcast(npdu *network.NPDU) *BVLC {
	return &BVLC{Function: FunctionOriginalBroadcast, NPDU: npdu}
}

// Encode writes the frame to w. The header length field covers the header
// itself plus the NPDU.
func (b *BVLC) Encode(w io.Writer) error {
	var header [headerLen]byte
	header[0] = LinkTypeBACnetIP
	header[1] = byte(b.Function)
	binary.BigEndian.PutUint16(header[2:], uint16(b.Len()))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	return b.NPDU.Encode(w)
}

// Len returns the encoded frame size in bytes.
func (b *BVLC) Len() int {
	return headerLen + b.NPDU.Len()
}

// EncodeBytes returns the encoded frame as a fresh slice.
func (b *BVLC) EncodeBytes() ([]byte, error) {
	npdu, err := b.NPDU.EncodeBytes()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, headerLen+len(npdu))
	buf = append(buf, LinkTypeBACnetIP, byte(b.Function))
	buf = binary.BigEndian.AppendUint16(buf, uint16(headerLen+len(npdu)))
	return append(buf, npdu...), nil
}

// DecodeBVLC decodes a frame. The header length field is the authoritative
// frame boundary: bytes past it are ignored, a buffer shorter than it is a
// framing error.
func DecodeBVLC(data []byte) (*BVLC, error) {
	payload, function, err := frame(data)
	if err != nil {
		return nil, err
	}
	npdu, err := network.DecodeNPDU(payload)
	if err != nil {
		return nil, err
	}
	return &BVLC{Function: function, NPDU: npdu}, nil
}

// frame validates the header against the buffer and returns the NPDU bytes.
func frame(data []byte) ([]byte, Function, error) {
	if len(data) < headerLen {
		return nil, 0, fmt.Errorf("%w: bvlc header needs %d bytes, got %d",
			encoding.ErrTruncated, headerLen, len(data))
	}
	if data[0] != LinkTypeBACnetIP {
		return nil, 0, fmt.Errorf("%w: 0x%02X", ErrUnsupportedLinkType, data[0])
	}
	function := Function(data[1])
	if !function.carriesNPDU() {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnsupportedFunction, function)
	}
	total := int(binary.BigEndian.Uint16(data[2:4]))
	if total < headerLen {
		return nil, 0, fmt.Errorf("%w: bvlc length %d below header size",
			encoding.ErrMalformedLength, total)
	}
	if total > len(data) {
		return nil, 0, fmt.Errorf("%w: bvlc declares %d bytes, %d available",
			encoding.ErrMalformedLength, total, len(data))
	}
	return data[headerLen:total], function, nil
}
