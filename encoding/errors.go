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

import "errors"

// Sentinel errors
var (
	// ErrTruncated is returned when the input ends before a fixed-width
	// field could be read in full.
	ErrTruncated = errors.New("bacnet: truncated input")

	// ErrMalformedLength is returned when a declared length does not match
	// the remaining input.
	ErrMalformedLength = errors.New("bacnet: malformed length")
)
