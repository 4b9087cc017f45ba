// SPDX-License-Identifier: Apache-2.0

// Package serialio opens and reopens the serial ports a Worker writes
// to. It wraps go.bug.st/serial with the DTR/RTS/settle sequence
// AdaLight-style Arduino receivers rely on, and a bounded read
// timeout so negotiation code never blocks forever on a device that
// never answers.
package serialio

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// readTimeout bounds every Read on a port. WLED negotiation
// (internal/codec) reads with its own select/timeout goroutine, but
// that goroutine still needs the underlying Read call to return;
// without a port-level timeout a read on a port that never sends
// anything blocks forever and leaks the goroutine.
const readTimeout = 500 * time.Millisecond

// dtrSettle is how long to wait after asserting DTR/RTS before the
// data path opens, giving an Arduino-style receiver time to finish its
// power-on-reset reboot.
const dtrSettle = 100 * time.Millisecond

// Port is the open serial connection a Worker reads negotiation
// responses from and writes encoded frames to.
type Port struct {
	port serial.Port
	name string
	baud int
}

// Open opens portName at baudRate, 8N1, no flow control, asserts
// DTR/RTS, and waits dtrSettle before returning.
func Open(portName string, baudRate int) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	sp, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("serialio: open %s: %w", portName, err)
	}
	if err := sp.SetReadTimeout(readTimeout); err != nil {
		sp.Close()
		return nil, fmt.Errorf("serialio: set read timeout on %s: %w", portName, err)
	}
	if err := sp.SetDTR(true); err != nil {
		sp.Close()
		return nil, fmt.Errorf("serialio: assert DTR on %s: %w", portName, err)
	}
	if err := sp.SetRTS(true); err != nil {
		sp.Close()
		return nil, fmt.Errorf("serialio: assert RTS on %s: %w", portName, err)
	}
	time.Sleep(dtrSettle)

	return &Port{port: sp, name: portName, baud: baudRate}, nil
}

func (p *Port) Read(b []byte) (int, error)  { return p.port.Read(b) }
func (p *Port) Write(b []byte) (int, error) { return p.port.Write(b) }
func (p *Port) Close() error                { return p.port.Close() }

// Baud returns the rate the port is currently open at.
func (p *Port) Baud() int { return p.baud }

// Reopen closes the port and reopens it at newBaud, preserving
// DTR/RTS/settle semantics. Used after WLED's Negotiate reports the
// device switched its runtime baud rate.
func (p *Port) Reopen(newBaud int) error {
	if err := p.port.Close(); err != nil {
		return fmt.Errorf("serialio: close %s before reopen: %w", p.name, err)
	}
	reopened, err := Open(p.name, newBaud)
	if err != nil {
		return err
	}
	p.port = reopened.port
	p.baud = newBaud
	return nil
}
