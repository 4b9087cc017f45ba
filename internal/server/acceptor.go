// SPDX-License-Identifier: Apache-2.0

// Package server accepts OPC TCP clients, frames their byte stream,
// and hands decoded messages to a Router. It also exposes a websocket
// stats feed for status clients and the ctlproto admin control server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/ledbridge/opcbridge/internal/opcframe"
	"github.com/ledbridge/opcbridge/internal/router"
)

// recvBufferSize is the read chunk size per connection.
const recvBufferSize = 16384

// Acceptor listens for OPC TCP clients and feeds each connection's
// byte stream through its own Framer into a shared Router. Unlike the
// original's single-threaded non-blocking accept loop, Go's blocking
// net.Conn.Read is handled efficiently by the runtime netpoller, so
// each connection simply gets its own goroutine.
type Acceptor struct {
	addr   string
	router *router.Router

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewAcceptor returns an Acceptor that will listen on addr
// ("host:port") and dispatch decoded OPC messages to r.
func NewAcceptor(addr string, r *router.Router) *Acceptor {
	return &Acceptor{addr: addr, router: r}
}

// Run binds the listener and accepts connections until ctx is
// cancelled. It blocks until shutdown completes.
func (a *Acceptor) Run(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", a.addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", a.addr, err)
	}

	a.mu.Lock()
	a.listener = ln
	a.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				a.wg.Wait()
				return nil
			default:
				if errors.Is(err, net.ErrClosed) {
					a.wg.Wait()
					return nil
				}
				log.Printf("server: accept: %v", err)
				continue
			}
		}

		a.wg.Add(1)
		go a.handleConn(ctx, conn)
	}
}

// handleConn drains conn into a Framer and dispatches every decoded
// message to the router until the client disconnects or ctx ends.
func (a *Acceptor) handleConn(ctx context.Context, conn net.Conn) {
	defer a.wg.Done()
	defer conn.Close()

	f := opcframe.New()
	buf := make([]byte, recvBufferSize)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			f.Feed(buf[:n])
			for {
				msg, ok := f.Next()
				if !ok {
					break
				}
				a.router.Dispatch(msg.Channel, msg.Command, msg.Payload)
			}
		}
		if err != nil {
			return
		}
	}
}

// Addr returns the bound listen address, valid once Run has started.
// Useful for tests that bind to port 0.
func (a *Acceptor) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}
