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

package bacnetip

import (
	"encoding/binary"

	"github.com/edgeo-scada/bacnet/network"
)

// BVLCSlice is a zero-copy view over an encoded BVLC frame. Construction
// runs the same header validation as DecodeBVLC but leaves the NPDU
// untouched, so filters can inspect the header cheaply and decode the rest
// only for frames that pass.
type BVLCSlice []byte

// BVLCSliceFrom validates the header against data and wraps the frame
// without copying. Bytes past the declared frame length are dropped from
// the view.
func BVLCSliceFrom(data []byte) (BVLCSlice, error) {
	payload, _, err := frame(data)
	if err != nil {
		return nil, err
	}
	return BVLCSlice(data[:headerLen+len(payload)]), nil
}

// LinkType returns the BVLC type octet.
func (s BVLCSlice) LinkType() uint8 { return s[0] }

// Function returns the BVLC function.
func (s BVLCSlice) Function() Function { return Function(s[1]) }

// Length returns the declared frame length in bytes.
func (s BVLCSlice) Length() uint16 { return binary.BigEndian.Uint16(s[2:4]) }

// Payload returns the still-encoded NPDU bytes, aliasing the buffer.
func (s BVLCSlice) Payload() []byte { return s[headerLen:] }

// NPDU returns the payload as an NPDU view.
func (s BVLCSlice) NPDU() (network.NPDUSlice, error) {
	return network.NPDUSliceFrom(s.Payload())
}

// ToOwned fully decodes the frame into an owned BVLC.
func (s BVLCSlice) ToOwned() (*BVLC, error) {
	return DecodeBVLC(s)
}
