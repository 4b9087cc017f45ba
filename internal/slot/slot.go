// SPDX-License-Identifier: Apache-2.0

// Package slot implements the single-element latest-wins mailbox that
// hands pixel buffers from the router to a serial worker. Publish
// never blocks; a slow worker only ever sees the most recent buffer.
package slot

import "sync"

// Frame is one buffer moving through a Slot, tagged with the
// monotonically increasing sequence number the Slot assigned it on
// Publish.
type Frame struct {
	Seq  uint64
	Data []byte
}

// Slot is a one-element mailbox. It is safe for any number of
// concurrent Publish callers and any number of concurrent Take
// callers (though the intended shape is one router and one worker).
type Slot struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending *Frame
	seq     uint64
	dropped uint64
	closed  bool
}

// New returns an empty, open Slot.
func New() *Slot {
	s := &Slot{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Publish stores buf as the pending frame, assigning it the next
// sequence number. If a frame was already pending, it is discarded
// and the dropped-by-replacement counter increments. Publish never
// blocks; after Close it is a silent no-op.
func (s *Slot) Publish(buf []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.pending != nil {
		s.dropped++
	}
	s.seq++
	s.pending = &Frame{Seq: s.seq, Data: buf}
	s.cond.Signal()
}

// Take blocks until a frame is available or the slot is closed, in
// which case ok is false.
func (s *Slot) Take() (frame Frame, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.pending == nil && !s.closed {
		s.cond.Wait()
	}
	if s.pending == nil {
		return Frame{}, false
	}
	f := *s.pending
	s.pending = nil
	return f, true
}

// Close causes all pending and future Take calls to return
// immediately with ok=false. Close is idempotent and safe to call
// concurrently with Publish.
func (s *Slot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.cond.Broadcast()
}

// Dropped returns the number of frames discarded by replacement.
func (s *Slot) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Depth reports whether a frame is currently pending (0 or 1), per
// the single-slot "depth <= 1" invariant.
func (s *Slot) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return 0
	}
	return 1
}
