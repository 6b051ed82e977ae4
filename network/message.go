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
	"errors"
	"fmt"
	"io"

	"github.com/edgeo-scada/bacnet/encoding"
)

// ErrUnsupportedMessage is returned for message types in the ASHRAE
// reserved range.
var ErrUnsupportedMessage = errors.New("bacnet: unsupported network message")

// MessageType identifies a network layer message. Values up to 0x13 are
// standard, 0x14-0x7F are reserved, 0x80 and above are vendor proprietary.
type MessageType uint8

const (
	MessageWhoIsRouterToNetwork      MessageType = 0x00
	MessageIAmRouterToNetwork        MessageType = 0x01
	MessageICouldBeRouterToNetwork   MessageType = 0x02
	MessageRejectMessageToNetwork    MessageType = 0x03
	MessageRouterBusyToNetwork       MessageType = 0x04
	MessageRouterAvailableToNetwork  MessageType = 0x05
	MessageInitializeRoutingTable    MessageType = 0x06
	MessageInitializeRoutingTableAck MessageType = 0x07
	MessageEstablishConnection       MessageType = 0x08
	MessageDisconnectConnection      MessageType = 0x09
	MessageChallengeRequest          MessageType = 0x0A
	MessageSecurityPayload           MessageType = 0x0B
	MessageSecurityResponse          MessageType = 0x0C
	MessageRequestKeyUpdate          MessageType = 0x0D
	MessageUpdateKeySet              MessageType = 0x0E
	MessageUpdateDistributionKey     MessageType = 0x0F
	MessageRequestMasterKey          MessageType = 0x10
	MessageSetMasterKey              MessageType = 0x11
	MessageWhatIsNetworkNumber       MessageType = 0x12
	MessageNetworkNumberIs           MessageType = 0x13

	proprietaryMessageBase MessageType = 0x80
)

// Proprietary reports whether the type is in the vendor proprietary range.
func (m MessageType) Proprietary() bool {
	return m >= proprietaryMessageBase
}

func (m MessageType) String() string {
	names := map[MessageType]string{
		MessageWhoIsRouterToNetwork:      "who-is-router-to-network",
		MessageIAmRouterToNetwork:        "i-am-router-to-network",
		MessageICouldBeRouterToNetwork:   "i-could-be-router-to-network",
		MessageRejectMessageToNetwork:    "reject-message-to-network",
		MessageRouterBusyToNetwork:       "router-busy-to-network",
		MessageRouterAvailableToNetwork:  "router-available-to-network",
		MessageInitializeRoutingTable:    "initialize-routing-table",
		MessageInitializeRoutingTableAck: "initialize-routing-table-ack",
		MessageEstablishConnection:       "establish-connection-to-network",
		MessageDisconnectConnection:      "disconnect-connection-to-network",
		MessageChallengeRequest:          "challenge-request",
		MessageSecurityPayload:           "security-payload",
		MessageSecurityResponse:          "security-response",
		MessageRequestKeyUpdate:          "request-key-update",
		MessageUpdateKeySet:              "update-key-set",
		MessageUpdateDistributionKey:     "update-distribution-key",
		MessageRequestMasterKey:          "request-master-key",
		MessageSetMasterKey:              "set-master-key",
		MessageWhatIsNetworkNumber:       "what-is-network-number",
		MessageNetworkNumberIs:           "network-number-is",
	}
	if name, ok := names[m]; ok {
		return name
	}
	if m.Proprietary() {
		return fmt.Sprintf("proprietary(0x%02X)", uint8(m))
	}
	return fmt.Sprintf("reserved(0x%02X)", uint8(m))
}

// Message is a network layer message. VendorID is present on the wire only
// for proprietary types; Data is the remaining type-specific payload, left
// encoded and aliasing the decode input.
type Message struct {
	Type     MessageType
	VendorID uint16
	Data     []byte
}

// DecodeMessage decodes a network message. Reserved types are rejected.
func DecodeMessage(data []byte) (*Message, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: network message type", encoding.ErrTruncated)
	}
	msg := &Message{Type: MessageType(data[0])}
	rest := data[1:]

	if msg.Type > MessageNetworkNumberIs && !msg.Type.Proprietary() {
		return nil, fmt.Errorf("%w: reserved type 0x%02X", ErrUnsupportedMessage, data[0])
	}
	if msg.Type.Proprietary() {
		if len(rest) < 2 {
			return nil, fmt.Errorf("%w: proprietary message vendor id", encoding.ErrTruncated)
		}
		msg.VendorID = binary.BigEndian.Uint16(rest[:2])
		rest = rest[2:]
	}
	msg.Data = rest
	return msg, nil
}

// Encode writes the message to w.
func (m *Message) Encode(w io.Writer) error {
	buf := make([]byte, 0, 3)
	buf = append(buf, byte(m.Type))
	if m.Type.Proprietary() {
		buf = binary.BigEndian.AppendUint16(buf, m.VendorID)
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}
	_, err := w.Write(m.Data)
	return err
}

// Len returns the encoded size in bytes.
func (m *Message) Len() int {
	size := 1 + len(m.Data)
	if m.Type.Proprietary() {
		size += 2
	}
	return size
}
