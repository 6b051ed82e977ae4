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
	"log/slog"
	"time"

	"github.com/edgeo-scada/bacnet/application"
)

// clientOptions holds configuration for the BACnet client
type clientOptions struct {
	// Local device identity, announced in I-Am
	deviceID     uint32
	vendorID     uint16
	maxAPDU      uint16
	segmentation application.Segmentation

	// Network configuration
	localAddress     string
	port             int
	broadcastAddress string

	// Timeouts
	timeout time.Duration

	// Who-Is responder
	respondToWhoIs bool

	// Logging
	logger *slog.Logger
}

// defaultOptions returns the default client options
func defaultOptions() *clientOptions {
	return &clientOptions{
		deviceID:     0xFFFFFFFF, // Uninitialized
		vendorID:     0,
		maxAPDU:      MaxAPDULength,
		segmentation: application.NoSegmentation,
		port:         DefaultPort,
		timeout:      3 * time.Second,
		logger:       slog.Default(),
	}
}

// Option is a functional option for configuring the client
type Option func(*clientOptions)

// WithDeviceID sets the local device ID announced in I-Am
func WithDeviceID(id uint32) Option {
	return func(o *clientOptions) {
		o.deviceID = id
	}
}

// WithVendorID sets the vendor ID announced in I-Am
func WithVendorID(id uint16) Option {
	return func(o *clientOptions) {
		o.vendorID = id
	}
}

// WithMaxAPDU sets the maximum APDU length announced in I-Am
func WithMaxAPDU(length uint16) Option {
	return func(o *clientOptions) {
		o.maxAPDU = length
	}
}

// WithSegmentation sets the segmentation capability announced in I-Am
func WithSegmentation(seg application.Segmentation) Option {
	return func(o *clientOptions) {
		o.segmentation = seg
	}
}

// WithLocalAddress sets the local address to bind to
func WithLocalAddress(addr string) Option {
	return func(o *clientOptions) {
		o.localAddress = addr
	}
}

// WithPort sets the UDP port (defaults to 47808)
func WithPort(port int) Option {
	return func(o *clientOptions) {
		o.port = port
	}
}

// WithBroadcastAddress overrides the broadcast address used for Who-Is
func WithBroadcastAddress(addr string) Option {
	return func(o *clientOptions) {
		o.broadcastAddress = addr
	}
}

// WithTimeout sets the transport read/write timeout
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithWhoIsResponder makes the client answer matching Who-Is requests with
// an I-Am announcing the local device
func WithWhoIsResponder(enable bool) Option {
	return func(o *clientOptions) {
		o.respondToWhoIs = enable
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// DiscoverOptions holds configuration for device discovery
type DiscoverOptions struct {
	// Range limits for Who-Is
	LowLimit  *uint32
	HighLimit *uint32

	// How long to collect I-Am answers
	Timeout time.Duration
}

// DiscoverOption is a functional option for discovery
type DiscoverOption func(*DiscoverOptions)

// defaultDiscoverOptions returns default discovery options
func defaultDiscoverOptions() *DiscoverOptions {
	return &DiscoverOptions{
		Timeout: 5 * time.Second,
	}
}

// WithDeviceRange sets the device ID range for discovery
func WithDeviceRange(low, high uint32) DiscoverOption {
	return func(o *DiscoverOptions) {
		o.LowLimit = &low
		o.HighLimit = &high
	}
}

// WithDiscoveryTimeout sets the discovery timeout
func WithDiscoveryTimeout(d time.Duration) DiscoverOption {
	return func(o *DiscoverOptions) {
		o.Timeout = d
	}
}
