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

// Package application implements the BACnet application layer: the APDU
// envelope and the unconfirmed service payloads carried inside it.
package application

import (
	"errors"
	"fmt"
	"io"

	"github.com/edgeo-scada/bacnet/encoding"
)

// ErrUnsupportedService is returned when a service choice octet names a
// service this implementation does not decode.
var ErrUnsupportedService = errors.New("bacnet: unsupported service")

// PDUType identifies the kind of APDU, carried in the high nibble of the
// first octet.
type PDUType uint8

const (
	PDUTypeConfirmedRequest   PDUType = 0
	PDUTypeUnconfirmedRequest PDUType = 1
	PDUTypeSimpleAck          PDUType = 2
	PDUTypeComplexAck         PDUType = 3
	PDUTypeSegmentAck         PDUType = 4
	PDUTypeError              PDUType = 5
	PDUTypeReject             PDUType = 6
	PDUTypeAbort              PDUType = 7
)

func (p PDUType) String() string {
	names := map[PDUType]string{
		PDUTypeConfirmedRequest:   "confirmed-request",
		PDUTypeUnconfirmedRequest: "unconfirmed-request",
		PDUTypeSimpleAck:          "simple-ack",
		PDUTypeComplexAck:         "complex-ack",
		PDUTypeSegmentAck:         "segment-ack",
		PDUTypeError:              "error",
		PDUTypeReject:             "reject",
		PDUTypeAbort:              "abort",
	}
	if name, ok := names[p]; ok {
		return name
	}
	return fmt.Sprintf("pdu-type(%d)", uint8(p))
}

// UnconfirmedServiceChoice identifies an unconfirmed service.
type UnconfirmedServiceChoice uint8

const (
	ServiceIAm                  UnconfirmedServiceChoice = 0
	ServiceIHave                UnconfirmedServiceChoice = 1
	ServiceCOVNotification      UnconfirmedServiceChoice = 2
	ServiceEventNotification    UnconfirmedServiceChoice = 3
	ServicePrivateTransfer      UnconfirmedServiceChoice = 4
	ServiceTextMessage          UnconfirmedServiceChoice = 5
	ServiceTimeSynchronization  UnconfirmedServiceChoice = 6
	ServiceWhoHas               UnconfirmedServiceChoice = 7
	ServiceWhoIs                UnconfirmedServiceChoice = 8
	ServiceUTCTimeSync          UnconfirmedServiceChoice = 9
	ServiceWriteGroup           UnconfirmedServiceChoice = 10
	ServiceCOVNotificationMulti UnconfirmedServiceChoice = 11
)

func (s UnconfirmedServiceChoice) String() string {
	names := map[UnconfirmedServiceChoice]string{
		ServiceIAm:                  "i-am",
		ServiceIHave:                "i-have",
		ServiceCOVNotification:      "unconfirmed-cov-notification",
		ServiceEventNotification:    "unconfirmed-event-notification",
		ServicePrivateTransfer:      "unconfirmed-private-transfer",
		ServiceTextMessage:          "unconfirmed-text-message",
		ServiceTimeSynchronization:  "time-synchronization",
		ServiceWhoHas:               "who-has",
		ServiceWhoIs:                "who-is",
		ServiceUTCTimeSync:          "utc-time-synchronization",
		ServiceWriteGroup:           "write-group",
		ServiceCOVNotificationMulti: "unconfirmed-cov-notification-multiple",
	}
	if name, ok := names[s]; ok {
		return name
	}
	return fmt.Sprintf("unconfirmed-service(%d)", uint8(s))
}

// APDU is the application layer envelope: PDU type, service choice and the
// still-encoded service content. Content aliases the decode input; copy it
// before the buffer is reused.
type APDU struct {
	Type          PDUType
	ServiceChoice uint8
	Content       []byte
}

// NewUnconfirmedRequest builds the APDU envelope for an unconfirmed service.
func NewUnconfirmedRequest(service UnconfirmedService) (*APDU, error) {
	content := make([]byte, 0, service.Len())
	content, err := service.AppendTo(content)
	if err != nil {
		return nil, err
	}
	return &APDU{
		Type:          PDUTypeUnconfirmedRequest,
		ServiceChoice: uint8(service.Choice()),
		Content:       content,
	}, nil
}

// DecodeAPDU decodes the APDU envelope. The service content is left encoded.
func DecodeAPDU(data []byte) (*APDU, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: apdu needs at least 2 bytes, got %d", encoding.ErrTruncated, len(data))
	}
	return &APDU{
		Type:          PDUType(data[0] >> 4),
		ServiceChoice: data[1],
		Content:       data[2:],
	}, nil
}

// Service decodes the carried service content. Only unconfirmed requests
// with a known service choice are supported.
func (a *APDU) Service() (UnconfirmedService, error) {
	if a.Type != PDUTypeUnconfirmedRequest {
		return nil, fmt.Errorf("%w: pdu type %s", ErrUnsupportedService, a.Type)
	}
	return DecodeUnconfirmedService(UnconfirmedServiceChoice(a.ServiceChoice), a.Content)
}

// Encode writes the APDU to w.
func (a *APDU) Encode(w io.Writer) error {
	header := [2]byte{byte(a.Type) << 4, a.ServiceChoice}
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(a.Content)
	return err
}

// Len returns the encoded size in bytes.
func (a *APDU) Len() int {
	return 2 + len(a.Content)
}

// EncodeBytes returns the encoded APDU as a fresh slice.
func (a *APDU) EncodeBytes() []byte {
	buf := make([]byte, 0, a.Len())
	buf = append(buf, byte(a.Type)<<4, a.ServiceChoice)
	return append(buf, a.Content...)
}
