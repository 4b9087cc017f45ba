// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/ledbridge/opcbridge/internal/config"
	"github.com/ledbridge/opcbridge/internal/output"
	"github.com/ledbridge/opcbridge/internal/router"
	"github.com/ledbridge/opcbridge/internal/slot"
	"github.com/ledbridge/opcbridge/internal/stats"
)

// Bridge wires a validated Config into a running system: one Slot,
// Worker and stats.Output per configured output, a Router fanning
// inbound OPC frames out to their slots, and an Acceptor serving
// clients.
type Bridge struct {
	cfg      config.Config
	acceptor *Acceptor
	router   *router.Router
	registry *stats.Registry
	workers  []*output.Worker
}

// New builds a Bridge from cfg without starting any goroutines.
func New(cfg config.Config) *Bridge {
	registry := stats.NewRegistry()
	routes := make([]*router.Route, 0, len(cfg.Outputs))
	workers := make([]*output.Worker, 0, len(cfg.Outputs))

	for _, oc := range cfg.Outputs {
		s := slot.New()
		st := registry.Add(stats.NewOutput(oc.PortName))
		routes = append(routes, router.NewRoute(oc, s, st))
		workers = append(workers, output.New(oc, s, st))
	}

	r := router.New(routes)
	addr := fmt.Sprintf("%s:%d", cfg.OPC.Host, cfg.OPC.Port)

	return &Bridge{
		cfg:      cfg,
		acceptor: NewAcceptor(addr, r),
		router:   r,
		registry: registry,
		workers:  workers,
	}
}

// Run starts every output worker and the TCP acceptor, blocking until
// ctx is cancelled or the acceptor fails to bind.
func (b *Bridge) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, w := range b.workers {
		wg.Add(1)
		go func(w *output.Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}

	err := b.acceptor.Run(ctx)
	cancel() // stop the workers too when the acceptor returns early on a bind error
	wg.Wait()
	return err
}

// Router exposes the bridge's router for stats/monitor snapshotting
// (routes carry the per-output dropped/skipped counters).
func (b *Bridge) Router() *router.Router { return b.router }

// Stats exposes the bridge's stats registry.
func (b *Bridge) Stats() *stats.Registry { return b.registry }

// Config returns the configuration the bridge was built from.
func (b *Bridge) Config() config.Config { return b.cfg }

// Addr returns the acceptor's bound listen address, valid once Run has
// started.
func (b *Bridge) Addr() net.Addr {
	return b.acceptor.Addr()
}
