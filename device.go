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

// Package bacnet provides a BACnet/IP client for device discovery on top of
// the layered frame codecs in bacnetip, network and application.
package bacnet

import (
	"fmt"
	"net"
	"time"

	"github.com/edgeo-scada/bacnet/application"
	"github.com/edgeo-scada/bacnet/encoding"
)

const (
	// DefaultPort is the standard BACnet/IP UDP port (0xBAC0)
	DefaultPort = 47808

	// MaxAPDULength is the maximum APDU length for BACnet/IP
	MaxAPDULength = 1476
)

// Address is a BACnet device address. Net 0 means the local network and
// Addr holds the link layer address, for BACnet/IP an IPv4 address with an
// optional trailing port.
type Address struct {
	Net  uint16
	Addr []byte
}

// UDPAddr converts the address to a UDP address, when it is a direct
// BACnet/IP one.
func (a Address) UDPAddr() (*net.UDPAddr, error) {
	switch len(a.Addr) {
	case 4:
		return &net.UDPAddr{IP: net.IP(a.Addr), Port: DefaultPort}, nil
	case 6:
		return &net.UDPAddr{
			IP:   net.IP(a.Addr[:4]),
			Port: int(uint16(a.Addr[4])<<8 | uint16(a.Addr[5])),
		}, nil
	default:
		return nil, fmt.Errorf("bacnet: address of %d bytes is not BACnet/IP", len(a.Addr))
	}
}

func (a Address) String() string {
	if udp, err := a.UDPAddr(); err == nil {
		if a.Net != 0 {
			return fmt.Sprintf("%d:%s", a.Net, udp)
		}
		return udp.String()
	}
	return fmt.Sprintf("%d:%x", a.Net, a.Addr)
}

// DeviceInfo describes a device discovered via I-Am
type DeviceInfo struct {
	ObjectID     encoding.ObjectIdentifier
	Address      Address
	MaxAPDU      uint16
	Segmentation application.Segmentation
	VendorID     uint16
	LastSeen     time.Time
}

// ID returns the device instance number
func (d *DeviceInfo) ID() uint32 {
	return d.ObjectID.Instance
}
