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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgeo-scada/bacnet"
)

var (
	listenRespond  bool
	listenAnnounce bool
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Listen for device announcements on the network",
	Long: `Listen passively monitors I-Am broadcasts and prints every device
that announces itself. With --respond it also answers matching Who-Is
requests with an I-Am for the local device.

Examples:
  # Monitor announcements
  edgeo-bacnet listen

  # Act as device 1234 and answer Who-Is
  edgeo-bacnet listen --respond --device 1234 --vendor 15`,

	RunE: runListen,
}

func init() {
	listenCmd.Flags().BoolVar(&listenRespond, "respond", false, "Answer matching Who-Is requests with I-Am")
	listenCmd.Flags().BoolVar(&listenAnnounce, "announce", false, "Broadcast an unsolicited I-Am on startup")
}

func runListen(cmd *cobra.Command, args []string) error {
	if (listenRespond || listenAnnounce) && deviceID == 0 {
		return fmt.Errorf("--respond and --announce require --device")
	}

	client, err := createClient(bacnet.WithWhoIsResponder(listenRespond))
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	client.OnIAm(func(dev *bacnet.DeviceInfo) {
		fmt.Printf("%s  i-am  device %-8d vendor %-5d %s\n",
			time.Now().Format("15:04:05"),
			dev.ID(),
			dev.VendorID,
			dev.Address,
		)
	})

	if listenAnnounce {
		if err := client.AnnounceIAm(ctx); err != nil {
			return fmt.Errorf("announce: %w", err)
		}
	}

	fmt.Fprintln(os.Stderr, "Listening for BACnet announcements, Ctrl-C to stop...")
	<-ctx.Done()

	snap := client.Metrics().Snapshot()
	fmt.Fprintf(os.Stderr, "\nframes=%d whois=%d iam=%d devices=%d decode_errors=%d\n",
		snap.FramesReceived,
		snap.WhoIsReceived,
		snap.IAmReceived,
		snap.DevicesDiscovered,
		snap.DecodeErrors,
	)

	return nil
}
