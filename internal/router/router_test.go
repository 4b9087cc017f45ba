// SPDX-License-Identifier: Apache-2.0

package router

import (
	"bytes"
	"testing"

	"github.com/ledbridge/opcbridge/internal/slot"
	"github.com/ledbridge/opcbridge/internal/stats"
)

func take(t *testing.T, s *slot.Slot) []byte {
	t.Helper()
	f, ok := s.Take()
	if !ok {
		t.Fatal("Take: ok = false")
	}
	return f.Data
}

func TestRouter_ExactChannelMatch(t *testing.T) {
	// O1 channel=1 count=2 offset=0, O2 channel=0 count=2 offset=0.
	s1, s2 := slot.New(), slot.New()
	o1 := &Route{Channel: 1, Offset: 0, LEDCount: 2, Slot: s1}
	o2 := &Route{Channel: 0, Offset: 0, LEDCount: 2, Slot: s2}
	r := New([]*Route{o1, o2})

	payload := []byte{1, 2, 3, 4, 5, 6}
	r.Dispatch(1, 0x00, payload)

	if got := take(t, s1); !bytes.Equal(got, payload) {
		t.Errorf("O1 got %v, want %v", got, payload)
	}
	if s2.Depth() != 0 {
		t.Error("O2 should not have received a frame for channel=1")
	}
}

func TestRouter_ChannelZeroBroadcastsToEveryOutput(t *testing.T) {
	s1, s2 := slot.New(), slot.New()
	o1 := &Route{Channel: 1, Offset: 0, LEDCount: 2, Slot: s1}
	o2 := &Route{Channel: 5, Offset: 0, LEDCount: 2, Slot: s2}
	r := New([]*Route{o1, o2})

	payload := []byte{9, 9, 9, 8, 8, 8}
	r.Dispatch(0, 0x00, payload)

	if got := take(t, s1); !bytes.Equal(got, payload) {
		t.Errorf("O1 got %v, want %v", got, payload)
	}
	if got := take(t, s2); !bytes.Equal(got, payload) {
		t.Errorf("O2 got %v, want %v", got, payload)
	}
}

func TestRouter_BroadcastSupersedesPendingPerChannelFrame(t *testing.T) {
	s1 := slot.New()
	o1 := &Route{Channel: 1, Offset: 0, LEDCount: 2, Slot: s1}
	r := New([]*Route{o1})

	r.Dispatch(1, 0x00, []byte{1, 1, 1, 1, 1, 1})
	r.Dispatch(0, 0x00, []byte{2, 2, 2, 2, 2, 2})

	if got := take(t, s1); !bytes.Equal(got, []byte{2, 2, 2, 2, 2, 2}) {
		t.Errorf("got %v, want the broadcast frame, with the stale per-channel frame dropped", got)
	}
	if s1.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", s1.Dropped())
	}
}

func TestRouter_OffsetSlicing(t *testing.T) {
	s := slot.New()
	o := &Route{Channel: 1, Offset: 1, LEDCount: 1, Slot: s}
	r := New([]*Route{o})

	payload := []byte{0xAA, 0xAA, 0xAA, 0xBB, 0xBB, 0xBB, 0xCC, 0xCC, 0xCC}
	r.Dispatch(1, 0x00, payload)

	want := []byte{0xBB, 0xBB, 0xBB}
	if got := take(t, s); !bytes.Equal(got, want) {
		t.Errorf("got % X, want % X", got, want)
	}
}

func TestRouter_ShortPayloadSkipsAndCounts(t *testing.T) {
	s := slot.New()
	o := &Route{Channel: 1, Offset: 0, LEDCount: 3, Slot: s}
	r := New([]*Route{o})

	// Needs 9 bytes, only 6 supplied.
	r.Dispatch(1, 0x00, []byte{1, 2, 3, 4, 5, 6})

	if s.Depth() != 0 {
		t.Error("short payload should not publish a frame")
	}
	if o.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", o.Skipped())
	}
}

func TestRouter_ExactBoundaryPayloadIsAccepted(t *testing.T) {
	s := slot.New()
	o := &Route{Channel: 1, Offset: 0, LEDCount: 2, Slot: s}
	r := New([]*Route{o})

	payload := make([]byte, 6) // exactly (0+2)*3
	r.Dispatch(1, 0x00, payload)

	if s.Depth() != 1 {
		t.Error("exact-boundary payload should be accepted")
	}
	if o.Skipped() != 0 {
		t.Errorf("Skipped() = %d, want 0", o.Skipped())
	}
}

func TestRouter_NonZeroCommandIsIgnored(t *testing.T) {
	s := slot.New()
	o := &Route{Channel: 1, Offset: 0, LEDCount: 1, Slot: s}
	r := New([]*Route{o})

	r.Dispatch(1, 0x01, []byte{1, 2, 3})

	if s.Depth() != 0 {
		t.Error("non-zero command should not publish a frame")
	}
}

func TestRouter_ReceivedCountsEveryPublishNotEveryTake(t *testing.T) {
	s := slot.New()
	st := stats.NewOutput("test")
	o := &Route{Channel: 1, Offset: 0, LEDCount: 1, Slot: s, Stats: st}
	r := New([]*Route{o})

	for i := 0; i < 10; i++ {
		r.Dispatch(1, 0x00, []byte{byte(i), byte(i), byte(i)})
	}
	take(t, s)

	snap := st.Snapshot(s.Dropped(), o.Skipped())
	if snap.Received != 10 {
		t.Errorf("Received = %d, want 10", snap.Received)
	}
	if snap.DroppedReplaced != 9 {
		t.Errorf("DroppedReplaced = %d, want 9", snap.DroppedReplaced)
	}
}

func TestRouter_UnmatchedChannelReceivesNothing(t *testing.T) {
	s := slot.New()
	o := &Route{Channel: 2, Offset: 0, LEDCount: 1, Slot: s}
	r := New([]*Route{o})

	r.Dispatch(3, 0x00, []byte{1, 2, 3})

	if s.Depth() != 0 {
		t.Error("output on channel 2 should not receive channel 3 data")
	}
}
