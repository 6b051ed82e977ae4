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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edgeo-scada/bacnet/application"
	"github.com/edgeo-scada/bacnet/bacnetip"
	"github.com/edgeo-scada/bacnet/encoding"
	"github.com/edgeo-scada/bacnet/network"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Decode a BACnet/IP frame from a hex string",
	Long: `Decode parses a hex-encoded BACnet/IP frame and prints every layer.

Examples:
  # A global-broadcast Who-Is
  edgeo-bacnet decode 810b000c0120ffff00ff1008

  # An I-Am answer
  edgeo-bacnet decode 810a001401001000c4020002572204009100210f`,

	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	raw, err := hex.DecodeString(strings.ToLower(strings.ReplaceAll(args[0], " ", "")))
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}

	frame, err := bacnetip.DecodeBVLC(raw)
	if err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}

	f := NewFormatter(outputFmt)

	fmt.Println("BVLC")
	f.PrintKeyValue(map[string]interface{}{
		"link_type": fmt.Sprintf("0x%02X", bacnetip.LinkTypeBACnetIP),
		"function":  frame.Function,
		"length":    frame.Len(),
	}, []string{"link_type", "function", "length"})

	npdu := frame.NPDU
	fmt.Println("\nNPDU")
	pairs := map[string]interface{}{
		"version":         npdu.Version,
		"priority":        npdu.Priority,
		"expecting_reply": npdu.ExpectingReply,
	}
	order := []string{"version", "priority", "expecting_reply"}
	if npdu.Destination != nil {
		pairs["destination"] = fmt.Sprintf("net %d addr %x hops %d",
			npdu.Destination.Net, npdu.Destination.Addr, npdu.Destination.HopCount)
		order = append(order, "destination")
	}
	if npdu.Source != nil {
		pairs["source"] = fmt.Sprintf("net %d addr %x", npdu.Source.Net, npdu.Source.Addr)
		order = append(order, "source")
	}
	f.PrintKeyValue(pairs, order)

	switch content := npdu.Content.(type) {
	case *network.Message:
		fmt.Println("\nNetwork Message")
		pairs := map[string]interface{}{
			"type": content.Type,
			"data": fmt.Sprintf("%x", content.Data),
		}
		order := []string{"type", "data"}
		if content.Type.Proprietary() {
			pairs["vendor_id"] = content.VendorID
			order = []string{"type", "vendor_id", "data"}
		}
		f.PrintKeyValue(pairs, order)

	case *application.APDU:
		fmt.Println("\nAPDU")
		f.PrintKeyValue(map[string]interface{}{
			"pdu_type": content.Type,
			"service":  application.UnconfirmedServiceChoice(content.ServiceChoice),
		}, []string{"pdu_type", "service"})

		printService(f, content)
	}

	return nil
}

func printService(f *Formatter, apdu *application.APDU) {
	svc, err := apdu.Service()
	if err != nil {
		// Unknown services still get a raw tag walk
		printTags(apdu.Content)
		return
	}

	switch s := svc.(type) {
	case *application.WhoIs:
		fmt.Println("\nWho-Is")
		if s.Limits == nil {
			f.PrintKeyValue(map[string]interface{}{"range": "all devices"}, []string{"range"})
		} else {
			f.PrintKeyValue(map[string]interface{}{
				"low_limit":  s.Limits.Low,
				"high_limit": s.Limits.High,
			}, []string{"low_limit", "high_limit"})
		}

	case *application.IAm:
		fmt.Println("\nI-Am")
		f.PrintKeyValue(map[string]interface{}{
			"device":       s.Device,
			"max_apdu":     s.MaxAPDU,
			"segmentation": s.Segmentation,
			"vendor_id":    s.VendorID,
		}, []string{"device", "max_apdu", "segmentation", "vendor_id"})
	}
}

// printTags walks the content as a flat tag sequence
func printTags(content []byte) {
	if len(content) == 0 {
		return
	}
	fmt.Println("\nTags")
	for len(content) > 0 {
		tag, n, err := encoding.DecodeTag(content)
		if err != nil {
			fmt.Printf("  !! %v\n", err)
			return
		}
		switch tag.LVT {
		case encoding.LVTValue:
			fmt.Printf("  %s %s value=%d\n", tag.Class, tag.AppTag(), tag.Value)
		case encoding.LVTOpening:
			fmt.Printf("  %s [%d] opening\n", tag.Class, tag.Number)
		case encoding.LVTClosing:
			fmt.Printf("  %s [%d] closing\n", tag.Class, tag.Number)
		default:
			if tag.Class == encoding.TagClassApplication {
				fmt.Printf("  %s %s %x\n", tag.Class, tag.AppTag(), tag.Data)
			} else {
				fmt.Printf("  %s [%d] %x\n", tag.Class, tag.Number, tag.Data)
			}
		}
		content = content[n:]
	}
}
