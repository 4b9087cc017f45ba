// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ledbridge/opcbridge/internal/config"
	"github.com/ledbridge/opcbridge/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the OPC bridge",
	Long: `Load the output configuration, start the OPC TCP listener, the
per-output serial workers, the admin control socket, and the
/ws/stats websocket feed.

When stdout is a terminal, serve launches the monitor dashboard
inline; otherwise it runs without a dashboard and prints no periodic
stats summary. Stats are then available only through the control
socket and the /ws/stats websocket.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	bridge := server.New(cfg)
	control := server.NewControlServer(controlAddr, bridge)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("serve: shutting down")
		cancel()
	}()

	errCh := make(chan error, 3)
	go func() { errCh <- bridge.Run(ctx) }()
	go func() { errCh <- control.Run(ctx) }()

	httpSrv := &http.Server{Addr: httpAddr, Handler: server.NewStatsHandler(bridge)}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("stats http: %w", err)
		}
	}()
	go func() {
		<-ctx.Done()
		httpSrv.Close()
	}()

	fmt.Printf("opcbridge: listening on opc://%s:%d, control=%s, stats=%s\n", cfg.OPC.Host, cfg.OPC.Port, controlAddr, httpAddr)

	if term.IsTerminal(int(os.Stdout.Fd())) {
		if err := runMonitorTUI(ctx, controlAddr); err != nil {
			log.Printf("serve: monitor exited: %v", err)
		}
		cancel()
	}

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	return nil
}
