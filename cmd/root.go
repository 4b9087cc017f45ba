// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// configPath points at the JSON output configuration consumed by serve.
	configPath string

	// controlAddr is the ctlproto admin socket dialed by monitor, probe,
	// and dump, and listened on by serve.
	controlAddr string

	// httpAddr is the "host:port" serve binds its /ws/stats websocket to.
	httpAddr string

	// statsURL is the ws:// URL status dials to fetch one snapshot.
	statsURL string
)

var rootCmd = &cobra.Command{
	Use:   "opcbridge",
	Short: "OPC-to-serial LED controller bridge",
	Long: `opcbridge accepts Open Pixel Control frames over TCP and fans them
out to serial LED controllers speaking AdaLight, AWA, or WLED.

Run "opcbridge serve" to start the bridge. The other subcommands are
thin clients against its admin control socket or stats websocket, for
scripting and live monitoring:

  serve    run the bridge (OPC listener + per-output serial workers)
  monitor  live terminal dashboard over the control socket
  probe    send one admin query and print the decoded reply
  dump     continuously decode and print control-socket traffic
  status   fetch one stats snapshot from the /ws/stats websocket`,
	Version: "1.0.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "opcbridge.json", "Path to the output configuration file")
	rootCmd.PersistentFlags().StringVar(&controlAddr, "control", "/run/opcbridge/control.sock", "Admin control socket (unix path or host:port)")
	rootCmd.PersistentFlags().StringVar(&httpAddr, "http", ":8080", "Listen address for the /ws/stats websocket (serve)")
	rootCmd.PersistentFlags().StringVar(&statsURL, "stats-url", "ws://127.0.0.1:8080/ws/stats", "Stats websocket URL (status)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
