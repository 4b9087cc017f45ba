// SPDX-License-Identifier: Apache-2.0

// Package opcframe parses Open Pixel Control messages out of a byte
// stream: 4-byte header (channel, command, length_hi, length_lo), then
// length payload bytes. Framing cannot fail by construction — it is
// purely length-prefixed — so the only error path is the underlying
// reader's.
package opcframe

import "encoding/binary"

const headerSize = 4

// Message is one decoded OPC message.
type Message struct {
	Channel byte
	Command byte
	Payload []byte
}

// Framer accumulates bytes from a connection and extracts complete OPC
// messages. It holds no I/O of its own — callers feed it bytes via
// Feed and drain complete messages via Next, so the same state machine
// serves both a live TCP connection and a test harness.
type Framer struct {
	buf []byte
}

// New returns an empty Framer.
func New() *Framer {
	return &Framer{}
}

// Feed appends newly read bytes to the accumulator.
func (f *Framer) Feed(data []byte) {
	f.buf = append(f.buf, data...)
}

// Next extracts one complete message from the accumulator, if one is
// available. It returns ok=false when fewer than a full message's
// worth of bytes has accumulated so far; callers should keep calling
// Next (it may yield more than one message per Feed) until it returns
// ok=false.
func (f *Framer) Next() (msg Message, ok bool) {
	if len(f.buf) < headerSize {
		return Message{}, false
	}

	length := int(binary.BigEndian.Uint16(f.buf[2:4]))
	total := headerSize + length
	if len(f.buf) < total {
		return Message{}, false
	}

	msg = Message{
		Channel: f.buf[0],
		Command: f.buf[1],
		Payload: append([]byte(nil), f.buf[headerSize:total]...),
	}
	f.buf = f.buf[total:]
	return msg, true
}

// Pending returns the number of unconsumed bytes currently buffered
// (for diagnostics/tests only).
func (f *Framer) Pending() int {
	return len(f.buf)
}
