// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ledbridge/opcbridge/internal/stats"
	"github.com/spf13/cobra"
)

var statusTimeout int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Fetch one stats snapshot from the /ws/stats websocket",
	Long: `Dial the bridge's /ws/stats websocket, print the first snapshot
it pushes, and exit.

Exit codes:
  0 - snapshot received before timeout
  1 - timeout reached without a snapshot
  2 - connection error`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().IntVar(&statusTimeout, "timeout", 5, "Timeout in seconds to wait for a snapshot")
}

func runStatus(cmd *cobra.Command, args []string) error {
	dialer := websocket.Dialer{HandshakeTimeout: time.Duration(statusTimeout) * time.Second}
	conn, _, err := dialer.Dial(statsURL, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", statsURL, err)
		os.Exit(2)
	}
	defer conn.Close()

	snapChan := make(chan []stats.Snapshot, 1)
	errChan := make(chan error, 1)

	go func() {
		var snaps []stats.Snapshot
		if err := conn.ReadJSON(&snaps); err != nil {
			errChan <- err
			return
		}
		snapChan <- snaps
	}()

	select {
	case snaps := <-snapChan:
		fmt.Printf("opcbridge - stats snapshot (%d outputs)\n\n", len(snaps))
		for _, s := range snaps {
			dropped := s.DroppedReplaced + s.DroppedShort
			fmt.Printf("%-28s connected=%-6t received=%-8d written=%-8d dropped=%-6d errors=%-6d rate=%.1f/s\n",
				s.Name, s.Connected, s.Received, s.Written, dropped, s.WriteErrors, s.FrameRate)
		}
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "read: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(statusTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: no snapshot within %d seconds\n", statusTimeout)
		os.Exit(1)
	}

	return nil
}
