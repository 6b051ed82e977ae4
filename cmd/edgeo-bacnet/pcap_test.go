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

package main

import (
	"encoding/hex"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildBACnetPacket(t *testing.T, payload []byte) []byte {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(192, 168, 1, 20),
		DstIP:    net.IPv4(192, 168, 1, 255),
	}
	udp := &layers.UDP{SrcPort: 47808, DstPort: 47808}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)))
	return buf.Bytes()
}

func writeCapture(t *testing.T, packets ...[]byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.pcap")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	w := pcapgo.NewWriter(file)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	for _, pkt := range packets {
		ci := gopacket.CaptureInfo{
			Timestamp:     time.Now(),
			CaptureLength: len(pkt),
			Length:        len(pkt),
		}
		require.NoError(t, w.WritePacket(ci, pkt))
	}
	return path
}

func TestSummarizeFrameWhoIs(t *testing.T) {
	payload, err := hex.DecodeString("810b000c0120ffff00ff1008")
	require.NoError(t, err)

	raw := buildBACnetPacket(t, payload)
	packet := gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.Default)
	udp, ok := packet.TransportLayer().(*layers.UDP)
	require.True(t, ok)

	row, err := summarizeFrame(packet, udp.Payload)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20", row[1])
	assert.Equal(t, "192.168.1.255", row[2])
	assert.Equal(t, "original-broadcast-npdu", row[3])
	assert.Equal(t, "who-is", row[4])
	assert.Equal(t, "all devices", row[5])
}

func TestSummarizeFrameIAm(t *testing.T) {
	payload, err := hex.DecodeString("810a001401001000c4020002572204009100210f")
	require.NoError(t, err)

	raw := buildBACnetPacket(t, payload)
	packet := gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.Default)
	udp, ok := packet.TransportLayer().(*layers.UDP)
	require.True(t, ok)

	row, err := summarizeFrame(packet, udp.Payload)
	require.NoError(t, err)
	assert.Equal(t, "original-unicast-npdu", row[3])
	assert.Equal(t, "i-am", row[4])
	assert.Equal(t, "device 599 vendor 15", row[5])
}

func TestSummarizeFrameRejectsGarbage(t *testing.T) {
	raw := buildBACnetPacket(t, []byte{0x00, 0x01, 0x02, 0x03})
	packet := gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.Default)
	udp, ok := packet.TransportLayer().(*layers.UDP)
	require.True(t, ok)

	_, err := summarizeFrame(packet, udp.Payload)
	assert.Error(t, err)
}

func TestCaptureRoundTrip(t *testing.T) {
	whois, err := hex.DecodeString("810b000c0120ffff00ff1008")
	require.NoError(t, err)
	iam, err := hex.DecodeString("810a001401001000c4020002572204009100210f")
	require.NoError(t, err)

	path := writeCapture(t, buildBACnetPacket(t, whois), buildBACnetPacket(t, iam))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	reader, err := pcapgo.NewReader(file)
	require.NoError(t, err)

	var rows [][]string
	source := gopacket.NewPacketSource(reader, reader.LinkType())
	for packet := range source.Packets() {
		udp, ok := packet.TransportLayer().(*layers.UDP)
		require.True(t, ok)
		row, err := summarizeFrame(packet, udp.Payload)
		require.NoError(t, err)
		rows = append(rows, row)
	}

	require.Len(t, rows, 2)
	assert.Equal(t, "who-is", rows[0][4])
	assert.Equal(t, "i-am", rows[1][4])
}
