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

package bacnet

import (
	"errors"

	"github.com/edgeo-scada/bacnet/application"
	"github.com/edgeo-scada/bacnet/bacnetip"
	"github.com/edgeo-scada/bacnet/encoding"
)

// Client errors
var (
	ErrNotConnected     = errors.New("bacnet: client not connected")
	ErrAlreadyConnected = errors.New("bacnet: client already connected")
	ErrConnectionClosed = errors.New("bacnet: connection closed")
	ErrTimeout          = errors.New("bacnet: request timed out")
	ErrDeviceNotFound   = errors.New("bacnet: device not found")
)

// Codec errors, re-exported from the layer packages so callers can match
// them without importing each layer.
var (
	ErrTruncated           = encoding.ErrTruncated
	ErrMalformedLength     = encoding.ErrMalformedLength
	ErrUnsupportedService  = application.ErrUnsupportedService
	ErrUnsupportedLinkType = bacnetip.ErrUnsupportedLinkType
	ErrUnsupportedFunction = bacnetip.ErrUnsupportedFunction
)

// IsDecodeError reports whether err came from frame or PDU decoding rather
// than from the transport or client state machine.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrTruncated) ||
		errors.Is(err, ErrMalformedLength) ||
		errors.Is(err, ErrUnsupportedService) ||
		errors.Is(err, ErrUnsupportedLinkType) ||
		errors.Is(err, ErrUnsupportedFunction)
}
