// SPDX-License-Identifier: Apache-2.0

// Package stats tracks per-output frame-delivery counters and exposes
// point-in-time snapshots for the monitor TUI, the websocket
// dashboard, and ctlproto's STATS_QUERY reply.
package stats

import (
	"sync/atomic"
	"time"
)

// Snapshot is an immutable, point-in-time copy of one output's
// counters, safe to hand to a renderer or marshal onto the wire.
type Snapshot struct {
	Name              string
	Received          uint64
	DroppedReplaced   uint64
	DroppedShort      uint64
	Written           uint64
	WriteErrors       uint64
	ReconnectCount    uint64
	LastWriteDuration time.Duration
	LastError         string
	FrameRate         float64 // frames/sec written, since start
	Connected         bool
}

// Output accumulates one output's lifetime counters. All fields are
// updated via sync/atomic so the router, the worker, and a reader
// (monitor/ctlproto/websocket) can touch it concurrently without a
// lock.
type Output struct {
	name      string
	start     time.Time
	received  atomic.Uint64
	dropped   atomic.Uint64 // by slot replacement (from Route)
	short     atomic.Uint64 // by short payload (from Route)
	written   atomic.Uint64
	errors    atomic.Uint64
	reconnect atomic.Uint64
	lastDur   atomic.Int64 // nanoseconds
	connected atomic.Bool

	lastErr atomic.Value // string
}

// NewOutput returns a zeroed counter set for one output, named for
// display (typically its configured port name).
func NewOutput(name string) *Output {
	o := &Output{name: name, start: time.Now()}
	o.lastErr.Store("")
	return o
}

// RecordReceived counts one frame the router published to this
// output's slot (whether or not it is ultimately dropped by
// replacement before the worker takes it).
func (o *Output) RecordReceived() { o.received.Add(1) }

// RecordWritten counts one frame successfully written to the serial
// port, along with how long the write took.
func (o *Output) RecordWritten(d time.Duration) {
	o.written.Add(1)
	o.lastDur.Store(int64(d))
}

// RecordWriteError counts a failed write/open and records the error text.
func (o *Output) RecordWriteError(err error) {
	o.errors.Add(1)
	o.lastErr.Store(err.Error())
}

// RecordReconnect counts one successful reopen after a failure.
func (o *Output) RecordReconnect() { o.reconnect.Add(1) }

// SetConnected updates the output's current connection state.
func (o *Output) SetConnected(connected bool) { o.connected.Store(connected) }

// Snapshot copies the current counters, along with dropped counts
// pulled from the associated router.Route (droppedReplaced/short are
// supplied by the caller since Route, not Output, owns them).
func (o *Output) Snapshot(droppedReplaced, droppedShort uint64) Snapshot {
	elapsed := time.Since(o.start).Seconds()
	written := o.written.Load()
	var rate float64
	if elapsed > 0 {
		rate = float64(written) / elapsed
	}
	return Snapshot{
		Name:              o.name,
		Received:          o.received.Load(),
		DroppedReplaced:   droppedReplaced,
		DroppedShort:      droppedShort,
		Written:           written,
		WriteErrors:       o.errors.Load(),
		ReconnectCount:    o.reconnect.Load(),
		LastWriteDuration: time.Duration(o.lastDur.Load()),
		LastError:         o.lastErr.Load().(string),
		FrameRate:         rate,
		Connected:         o.connected.Load(),
	}
}

// Registry collects the Output counters for every configured output,
// in registration order, for bulk snapshotting.
type Registry struct {
	outputs []*Output
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers o with the registry and returns it, for chaining at
// construction time.
func (r *Registry) Add(o *Output) *Output {
	r.outputs = append(r.outputs, o)
	return o
}

// Outputs returns the registered counters in registration order.
func (r *Registry) Outputs() []*Output {
	return r.outputs
}
