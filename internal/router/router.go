// SPDX-License-Identifier: Apache-2.0

// Package router fans OPC "set pixel colors" messages out to the
// outputs that care about them, slicing each output's per-frame pixel
// buffer out of the inbound payload and publishing it to that
// output's Slot. It holds no I/O of its own.
package router

import (
	"sync/atomic"

	"github.com/ledbridge/opcbridge/internal/config"
	"github.com/ledbridge/opcbridge/internal/slot"
	"github.com/ledbridge/opcbridge/internal/stats"
)

// setPixelColors is the only OPC command this bridge acts on; every
// other command is parsed by the framer and discarded by Dispatch.
const setPixelColors = 0x00

// bytesPerWirePixel is the OPC wire pixel width (RGB triplets) that
// opc_offset/led_count are measured against, independent of any given
// output's own pixel_format stride.
const bytesPerWirePixel = 3

// Route is one configured output's fan-out target: where its slice of
// the payload goes, and the coordinates of that slice.
type Route struct {
	Channel  byte
	Offset   int
	LEDCount int
	Slot     *slot.Slot
	Stats    *stats.Output

	skipped atomic.Uint64
}

// Skipped returns the number of frames this route has skipped because
// the inbound payload was too short to cover its offset+count.
func (r *Route) Skipped() uint64 {
	return r.skipped.Load()
}

// NewRoute builds a Route from an output's configuration, the Slot its
// worker reads from, and the counters st to credit on publish.
func NewRoute(o config.OutputConfig, s *slot.Slot, st *stats.Output) *Route {
	return &Route{
		Channel:  o.OPCChannel,
		Offset:   o.OPCOffset,
		LEDCount: o.LEDCount,
		Slot:     s,
		Stats:    st,
	}
}

// Router holds the full set of configured routes and dispatches
// incoming OPC messages to them.
type Router struct {
	routes []*Route
}

// New returns a Router serving the given routes.
func New(routes []*Route) *Router {
	return &Router{routes: append([]*Route(nil), routes...)}
}

// Dispatch handles one decoded OPC message. Only command 0x00 is
// acted on; everything else is a no-op (already logged/counted by the
// caller if it wants to).
func (rt *Router) Dispatch(channel, command byte, payload []byte) {
	if command != setPixelColors {
		return
	}

	broadcast := channel == 0
	for _, r := range rt.routes {
		if !broadcast && r.Channel != channel {
			continue
		}
		rt.publish(r, payload)
	}
}

// publish slices payload for r and hands it to r.Slot, or counts a
// skip if payload is too short to cover r's offset+count. Every
// successful publish is credited to r.Stats as received, regardless of
// whether the worker ever takes it before it's replaced.
func (rt *Router) publish(r *Route, payload []byte) {
	start := r.Offset * bytesPerWirePixel
	end := (r.Offset + r.LEDCount) * bytesPerWirePixel
	if end > len(payload) {
		r.skipped.Add(1)
		return
	}
	buf := append([]byte(nil), payload[start:end]...)
	r.Slot.Publish(buf)
	if r.Stats != nil {
		r.Stats.RecordReceived()
	}
}

// Routes returns the router's configured routes, for stats/monitor
// snapshotting.
func (rt *Router) Routes() []*Route {
	return rt.routes
}
