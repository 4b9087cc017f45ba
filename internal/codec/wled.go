// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// NegotiationPhase tracks where a WLED output sits in the baud
// handshake state machine.
type NegotiationPhase int

const (
	PhaseOpening NegotiationPhase = iota
	PhaseProbing
	PhaseSwitching
	PhaseRunning
	PhaseError
)

func (p NegotiationPhase) String() string {
	switch p {
	case PhaseOpening:
		return "opening"
	case PhaseProbing:
		return "probing"
	case PhaseSwitching:
		return "switching"
	case PhaseRunning:
		return "running"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// baudCommand maps a target data baud rate to WLED's single-byte
// runtime baud-change command. Only bytes 0xB0-0xB8 are ever sent, and
// only while idle (never mid-frame).
var baudCommand = map[int]byte{
	115200:  0xB0,
	230400:  0xB1,
	460800:  0xB2,
	500000:  0xB3,
	576000:  0xB4,
	921600:  0xB5,
	1000000: 0xB6,
	1500000: 0xB7,
	2000000: 0xB8,
}

const probeQuery = `{"v":true}` + "\n"
const probeTimeout = 250 * time.Millisecond
const switchSettle = 200 * time.Millisecond

// WLEDCodec wraps AdaLightCodec: WLED always speaks RGB order on the
// wire (any reordering is WLED's job downstream), and the codec
// carries the negotiation phase reached at Open time.
type WLEDCodec struct {
	AdaLightCodec
	phase NegotiationPhase
}

func (c *WLEDCodec) Phase() NegotiationPhase { return c.phase }

// Negotiate runs Probing then, if the target baud differs from the
// handshake baud, sends the Switching command byte and waits for the
// text acknowledgement. It never blocks the caller past probeTimeout
// + 2*switchSettle (up to switchSettle for the acknowledgement, then a
// fixed switchSettle pause). Failure to identify as WLED is not fatal: the
// caller falls back to best-effort AdaLight at the already-open baud.
//
// switchBaud is the target data-rate baud; the caller is responsible
// for actually reopening the port at that baud after Negotiate
// returns (Negotiate only speaks the negotiation bytes over rw).
func (c *WLEDCodec) Negotiate(rw io.ReadWriter, handshakeBaud, targetBaud int) (needsReopen bool, err error) {
	c.phase = PhaseProbing

	if _, err := io.WriteString(rw, probeQuery); err != nil {
		c.phase = PhaseError
		return false, fmt.Errorf("wled: probe write: %w", err)
	}

	if !c.readsRespond(rw) {
		// Non-WLED (or unresponsive) device: best-effort AdaLight at
		// the current baud.
		c.phase = PhaseRunning
		return false, nil
	}

	if targetBaud == handshakeBaud {
		c.phase = PhaseRunning
		return false, nil
	}

	cmd, ok := baudCommand[targetBaud]
	if !ok {
		c.phase = PhaseRunning
		return false, fmt.Errorf("wled: no baud command for %d, staying at %d", targetBaud, handshakeBaud)
	}

	c.phase = PhaseSwitching
	if _, err := rw.Write([]byte{cmd}); err != nil {
		c.phase = PhaseError
		return false, fmt.Errorf("wled: baud switch write: %w", err)
	}
	c.awaitSwitchAck(rw)
	time.Sleep(switchSettle)

	c.phase = PhaseRunning
	return true, nil
}

// readsRespond waits up to probeTimeout for any bytes and reports
// whether the device produced a response that looks like a WLED JSON
// info blob (cheap check: contains a brace).
func (c *WLEDCodec) readsRespond(r io.Reader) bool {
	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		reader := bufio.NewReader(r)
		buf := make([]byte, 256)
		n, err := reader.Read(buf)
		done <- result{line: string(buf[:n]), err: err}
	}()

	select {
	case res := <-done:
		return res.err == nil && strings.Contains(res.line, "{")
	case <-time.After(probeTimeout):
		return false
	}
}

// awaitSwitchAck waits briefly for WLED's "Baud is now <N>" text
// response; the response is informational only, so a timeout is not
// an error.
func (c *WLEDCodec) awaitSwitchAck(r io.Reader) {
	done := make(chan struct{})
	go func() {
		buf := make([]byte, 64)
		_, _ = r.Read(buf)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(switchSettle):
	}
}
