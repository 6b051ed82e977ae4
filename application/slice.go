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

// APDUSlice is a zero-copy view over an encoded APDU. Construction checks
// only that the fixed header is present; accessors read straight from the
// underlying buffer.
type APDUSlice []byte

// APDUSliceFrom validates the fixed header and wraps data without copying.
func APDUSliceFrom(data []byte) (APDUSlice, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: apdu needs at least 2 bytes, got %d", encoding.ErrTruncated, len(data))
	}
	return APDUSlice(data), nil
}

// Type returns the PDU type from the high nibble of the first octet.
func (s APDUSlice) Type() PDUType {
	return PDUType(s[0] >> 4)
}

// ServiceChoice returns the service choice octet.
func (s APDUSlice) ServiceChoice() uint8 {
	return s[1]
}

// Content returns the still-encoded service content, aliasing the buffer.
func (s APDUSlice) Content() []byte {
	return s[2:]
}

// Service decodes the carried service content, mirroring (*APDU).Service.
func (s APDUSlice) Service() (UnconfirmedService, error) {
	if s.Type() != PDUTypeUnconfirmedRequest {
		return nil, fmt.Errorf("%w: pdu type %s", ErrUnsupportedService, s.Type())
	}
	return DecodeUnconfirmedService(UnconfirmedServiceChoice(s.ServiceChoice()), s.Content())
}

// ToOwned converts the view into an owned APDU, copying the content out of
// the underlying buffer.
func (s APDUSlice) ToOwned() *APDU {
	content := make([]byte, len(s)-2)
	copy(content, s[2:])
	return &APDU{
		Type:          s.Type(),
		ServiceChoice: s.ServiceChoice(),
		Content:       content,
	}
}
