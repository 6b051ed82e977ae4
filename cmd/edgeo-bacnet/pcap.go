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
	"fmt"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/spf13/cobra"

	"github.com/edgeo-scada/bacnet/application"
	"github.com/edgeo-scada/bacnet/bacnetip"
)

var pcapPort uint16

var pcapCmd = &cobra.Command{
	Use:   "pcap <file>",
	Short: "Summarize BACnet/IP traffic in a packet capture",
	Long: `Pcap reads a capture file, filters BACnet/IP datagrams and prints one
line per decodable frame.

Examples:
  # Summarize a capture
  edgeo-bacnet pcap traffic.pcap

  # BACnet on a non-standard port
  edgeo-bacnet pcap traffic.pcap --pcap-port 47809`,

	Args: cobra.ExactArgs(1),
	RunE: runPcap,
}

func init() {
	pcapCmd.Flags().Uint16Var(&pcapPort, "pcap-port", 47808, "UDP port carrying BACnet/IP")
}

func runPcap(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer file.Close()

	reader, err := pcapgo.NewReader(file)
	if err != nil {
		return fmt.Errorf("read capture: %w", err)
	}

	var (
		total   int
		decoded int
		errors  int
		rows    [][]string
	)

	source := gopacket.NewPacketSource(reader, reader.LinkType())
	for packet := range source.Packets() {
		udp, ok := packet.TransportLayer().(*layers.UDP)
		if !ok {
			continue
		}
		if uint16(udp.SrcPort) != pcapPort && uint16(udp.DstPort) != pcapPort {
			continue
		}
		total++

		row, err := summarizeFrame(packet, udp.Payload)
		if err != nil {
			errors++
			if verbose {
				fmt.Fprintf(os.Stderr, "frame %d: %v\n", total, err)
			}
			continue
		}
		decoded++
		rows = append(rows, row)
	}

	if len(rows) > 0 {
		NewFormatter(outputFmt).Print(
			[]string{"time", "src", "dst", "function", "service", "detail"},
			rows,
		)
	}

	fmt.Fprintf(os.Stderr, "\n%d BACnet datagram(s), %d decoded, %d undecodable\n",
		total, decoded, errors)
	return nil
}

func summarizeFrame(packet gopacket.Packet, payload []byte) ([]string, error) {
	frame, err := bacnetip.BVLCSliceFrom(payload)
	if err != nil {
		return nil, err
	}

	ts := packet.Metadata().Timestamp.Format("15:04:05.000")
	src, dst := "", ""
	if netLayer := packet.NetworkLayer(); netLayer != nil {
		flow := netLayer.NetworkFlow()
		src, dst = flow.Src().String(), flow.Dst().String()
	}

	service := ""
	detail := ""

	npdu, err := frame.NPDU()
	if err != nil {
		return nil, err
	}
	if npdu.IsNetworkMessage() {
		msg, err := npdu.Message()
		if err != nil {
			return nil, err
		}
		service = "network"
		detail = msg.Type.String()
	} else {
		apdu, err := npdu.APDU()
		if err != nil {
			return nil, err
		}
		service = application.UnconfirmedServiceChoice(apdu.ServiceChoice()).String()
		if apdu.Type() != application.PDUTypeUnconfirmedRequest {
			service = apdu.Type().String()
		} else if svc, err := apdu.Service(); err == nil {
			switch s := svc.(type) {
			case *application.IAm:
				detail = fmt.Sprintf("device %d vendor %d", s.Device.Instance, s.VendorID)
			case *application.WhoIs:
				if s.Limits != nil {
					detail = fmt.Sprintf("range %d-%d", s.Limits.Low, s.Limits.High)
				} else {
					detail = "all devices"
				}
			}
		}
	}

	return []string{
		ts,
		src,
		dst,
		frame.Function().String(),
		service,
		detail,
	}, nil
}
