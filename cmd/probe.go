// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ledbridge/opcbridge/internal/ctlproto"
	"github.com/spf13/cobra"
)

var probeTimeout int

var probeCmd = &cobra.Command{
	Use:   "probe [stats|outputs|reconnect NAME]",
	Short: "Send one admin query and print the decoded reply",
	Long: `Dial the control socket, send a single admin command, and print
the decoded reply.

Exit codes:
  0 - non-ERROR reply received before timeout
  1 - ERROR reply received, or timeout reached without a reply
  2 - connection or protocol error`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 5, "Timeout in seconds to wait for a reply")
}

func runProbe(cmd *cobra.Command, args []string) error {
	var wire []byte
	var err error

	switch args[0] {
	case "stats":
		wire, err = ctlproto.EncodeStatsQuery()
	case "outputs":
		wire, err = ctlproto.EncodeOutputListQuery()
	case "reconnect":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "probe reconnect requires an output name")
			os.Exit(2)
		}
		wire, err = ctlproto.EncodeReconnectOutput(args[1])
	default:
		fmt.Fprintf(os.Stderr, "unknown probe command %q (want stats, outputs, or reconnect)\n", args[0])
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(2)
	}

	network := "unix"
	conn, dialErr := net.Dial(network, controlAddr)
	if dialErr != nil {
		network = "tcp"
		conn, dialErr = net.Dial(network, controlAddr)
		if dialErr != nil {
			fmt.Fprintf(os.Stderr, "dial %s: %v\n", controlAddr, dialErr)
			os.Exit(2)
		}
	}
	defer conn.Close()

	if _, err := conn.Write(wire); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(2)
	}

	pktChan := make(chan ctlproto.Packet, 1)
	errChan := make(chan error, 1)

	go func() {
		dec := ctlproto.NewDecoder()
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}
			for i := 0; i < n; i++ {
				pkt, ok, decErr := dec.DecodeByte(buf[i])
				if decErr != nil {
					errChan <- decErr
					return
				}
				if ok {
					pktChan <- pkt
					return
				}
			}
		}
	}()

	select {
	case pkt := <-pktChan:
		fmt.Println(ctlproto.FormatPacket(pkt))
		if pkt.Command == ctlproto.CmdError {
			os.Exit(1)
		}
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "read: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(probeTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: no reply within %d seconds\n", probeTimeout)
		os.Exit(1)
	}

	return nil
}
