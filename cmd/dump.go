// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"log"
	"net"

	"github.com/ledbridge/opcbridge/internal/ctlproto"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Continuously decode and print control-socket traffic",
	Long: `Dial the control socket and print every decoded ctlproto packet
that arrives on that connection. dump sends no request of its own, and
the control server writes only replies to requests made on the same
connection, so against opcbridge serve it prints nothing.`,
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	network := "unix"
	conn, err := net.Dial(network, controlAddr)
	if err != nil {
		network = "tcp"
		conn, err = net.Dial(network, controlAddr)
		if err != nil {
			return fmt.Errorf("dial %s: %w", controlAddr, err)
		}
	}
	defer conn.Close()

	fmt.Printf("opcbridge - control socket dump\n")
	fmt.Printf("Connection: %s (%s)\n", controlAddr, network)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	dec := ctlproto.NewDecoder()
	buf := make([]byte, 4096)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			log.Printf("dump: read error: %v", err)
			return nil
		}
		for i := 0; i < n; i++ {
			pkt, ok, decErr := dec.DecodeByte(buf[i])
			if decErr != nil {
				fmt.Printf("[ERROR] %v\n", decErr)
				continue
			}
			if ok {
				fmt.Println(ctlproto.FormatPacket(pkt))
			}
		}
	}
}
