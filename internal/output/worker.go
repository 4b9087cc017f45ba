// SPDX-License-Identifier: Apache-2.0

// Package output runs one serial LED controller's write path: take the
// latest pixel buffer off its Slot, transform it to wire pixel order,
// encode it in the output's wire protocol, and write it — reopening
// the port whenever a write fails, with exponential backoff between
// failed open attempts.
package output

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ledbridge/opcbridge/internal/codec"
	"github.com/ledbridge/opcbridge/internal/config"
	"github.com/ledbridge/opcbridge/internal/pixelfmt"
	"github.com/ledbridge/opcbridge/internal/serialio"
	"github.com/ledbridge/opcbridge/internal/slot"
	"github.com/ledbridge/opcbridge/internal/stats"
)

// portWriteCloser is the slice of *serialio.Port the write loop needs;
// narrowing it to an interface lets tests exercise loop against a fake
// without opening a real serial device.
type portWriteCloser interface {
	io.Writer
	io.Closer
}

// initialBackoff and maxBackoff bound the reconnect delay: 1s
// doubling to a 10s cap (see DESIGN.md's Open Questions).
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 10 * time.Second
)

// Worker owns one configured output's Open→Loop→Close lifecycle.
type Worker struct {
	cfg   config.OutputConfig
	slot  *slot.Slot
	codec codec.Codec
	stats *stats.Output
}

// New builds a Worker for cfg, reading frames from s and recording
// counters to st. The codec is selected from cfg.Protocol, with
// hardware_type "wled" selecting the WLED codec for non-AWA outputs.
func New(cfg config.OutputConfig, s *slot.Slot, st *stats.Output) *Worker {
	return &Worker{cfg: cfg, slot: s, codec: newCodec(cfg), stats: st}
}

func newCodec(cfg config.OutputConfig) codec.Codec {
	switch {
	case cfg.Protocol == config.ProtocolAWA:
		return &codec.AWACodec{}
	case cfg.IsWLED():
		return &codec.WLEDCodec{}
	default:
		return &codec.AdaLightCodec{}
	}
}

// Run opens the port and writes frames until ctx is cancelled or the
// Slot is closed. After a write failure it reopens the port at once;
// failed opens are retried with exponential backoff. Run blocks;
// callers run it in its own goroutine.
func (w *Worker) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		w.slot.Close()
	}()

	backoff := initialBackoff
	reconnecting := false
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		port, err := w.open()
		if err != nil {
			w.stats.RecordWriteError(err)
			w.stats.SetConnected(false)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			reconnecting = true
			continue
		}

		if reconnecting {
			w.stats.RecordReconnect()
		}
		backoff = initialBackoff
		reconnecting = false
		w.stats.SetConnected(true)

		err = w.loop(ctx, port)
		port.Close()
		w.stats.SetConnected(false)

		if err == nil {
			// Slot closed: shutdown requested.
			return
		}
		w.stats.RecordWriteError(err)
		reconnecting = true
	}
}

// open opens the serial port (at the handshake baud for WLED outputs)
// and, for WLED, runs the baud negotiation before the data path opens.
func (w *Worker) open() (*serialio.Port, error) {
	baud := w.cfg.BaudRate
	if w.cfg.IsWLED() {
		baud = w.cfg.HandshakeBaudRate
	}

	port, err := serialio.Open(w.cfg.PortName, baud)
	if err != nil {
		return nil, err
	}

	if wc, ok := w.codec.(*codec.WLEDCodec); ok {
		needsReopen, negErr := wc.Negotiate(port, w.cfg.HandshakeBaudRate, w.cfg.BaudRate)
		if negErr != nil {
			// Non-fatal: stay at the handshake baud, best-effort AdaLight.
			w.stats.RecordWriteError(fmt.Errorf("wled negotiation: %w", negErr))
		}
		if needsReopen {
			if err := port.Reopen(w.cfg.BaudRate); err != nil {
				port.Close()
				return nil, err
			}
		}
	}

	return port, nil
}

// loop writes frames until the Slot closes (nil return, clean
// shutdown) or a write fails (non-nil return, triggers reconnect).
func (w *Worker) loop(ctx context.Context, port portWriteCloser) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, ok := w.slot.Take()
		if !ok {
			return nil
		}

		pixels := pixelfmt.Transform(frame.Data, w.cfg.PixelFormat)
		wire := w.codec.Encode(pixels, w.cfg.PixelFormat.Stride())

		start := time.Now()
		if _, err := port.Write(wire); err != nil {
			return fmt.Errorf("write %s: %w", w.cfg.PortName, err)
		}
		w.stats.RecordWritten(time.Since(start))
	}
}
