// SPDX-License-Identifier: Apache-2.0

package output

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ledbridge/opcbridge/internal/codec"
	"github.com/ledbridge/opcbridge/internal/config"
	"github.com/ledbridge/opcbridge/internal/slot"
	"github.com/ledbridge/opcbridge/internal/stats"
)

// fakePort is a portWriteCloser test double: it records every write
// and can be told to fail on demand.
type fakePort struct {
	writes [][]byte
	failOn int // Write call index (0-based) that returns an error; -1 disables
	closed bool
}

func (f *fakePort) Write(p []byte) (int, error) {
	idx := len(f.writes)
	f.writes = append(f.writes, append([]byte(nil), p...))
	if f.failOn == idx {
		return 0, errors.New("simulated write failure")
	}
	return len(p), nil
}

func (f *fakePort) Close() error {
	f.closed = true
	return nil
}

func newTestWorker(cfg config.OutputConfig) (*Worker, *slot.Slot, *stats.Output) {
	s := slot.New()
	st := stats.NewOutput(cfg.PortName)
	w := &Worker{cfg: cfg, slot: s, codec: newCodec(cfg), stats: st}
	return w, s, st
}

func TestNewCodec_SelectsByProtocol(t *testing.T) {
	tests := []struct {
		proto config.Protocol
		want  interface{}
	}{
		{config.ProtocolAdaLight, &codec.AdaLightCodec{}},
		{config.ProtocolAWA, &codec.AWACodec{}},
		{config.ProtocolWLED, &codec.WLEDCodec{}},
	}
	for _, tt := range tests {
		got := newCodec(config.OutputConfig{Protocol: tt.proto})
		switch tt.want.(type) {
		case *codec.AdaLightCodec:
			if _, ok := got.(*codec.AdaLightCodec); !ok {
				t.Errorf("proto %v: got %T, want *AdaLightCodec", tt.proto, got)
			}
		case *codec.AWACodec:
			if _, ok := got.(*codec.AWACodec); !ok {
				t.Errorf("proto %v: got %T, want *AWACodec", tt.proto, got)
			}
		case *codec.WLEDCodec:
			if _, ok := got.(*codec.WLEDCodec); !ok {
				t.Errorf("proto %v: got %T, want *WLEDCodec", tt.proto, got)
			}
		}
	}
}

func TestWorker_LoopWritesTransformedEncodedFrame(t *testing.T) {
	cfg := config.OutputConfig{
		PortName:    "fake0",
		Protocol:    config.ProtocolAdaLight,
		PixelFormat: config.PixelFormatGRB,
		LEDCount:    1,
	}
	w, s, st := newTestWorker(cfg)
	fp := &fakePort{failOn: -1}

	go func() {
		s.Publish([]byte{0xAA, 0xBB, 0xCC}) // R,G,B on the wire from router
		time.Sleep(10 * time.Millisecond)
		s.Close()
	}()

	ctx := context.Background()
	if err := w.loop(ctx, fp); err != nil {
		t.Fatalf("loop returned error: %v", err)
	}
	if len(fp.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(fp.writes))
	}
	// GRB swap of AA BB CC -> BB AA CC, then AdaLight header wraps it.
	want := []byte{0x41, 0x64, 0x61, 0x00, 0x00, 0x55, 0xBB, 0xAA, 0xCC}
	if string(fp.writes[0]) != string(want) {
		t.Errorf("wrote % X, want % X", fp.writes[0], want)
	}
	if st.Snapshot(0, 0).Written != 1 {
		t.Error("stats did not record the write")
	}
}

func TestWorker_LoopReturnsErrorOnWriteFailure(t *testing.T) {
	cfg := config.OutputConfig{
		PortName:    "fake0",
		Protocol:    config.ProtocolAdaLight,
		PixelFormat: config.PixelFormatRGB,
		LEDCount:    1,
	}
	w, s, _ := newTestWorker(cfg)
	fp := &fakePort{failOn: 0}

	s.Publish([]byte{1, 2, 3})

	if err := w.loop(context.Background(), fp); err == nil {
		t.Fatal("loop should return an error on write failure")
	}
}

func TestWorker_LoopExitsCleanlyOnContextCancel(t *testing.T) {
	cfg := config.OutputConfig{PortName: "fake0", Protocol: config.ProtocolAdaLight}
	w, _, _ := newTestWorker(cfg)
	fp := &fakePort{failOn: -1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.loop(ctx, fp); err != nil {
		t.Errorf("loop error = %v, want nil on cancelled context", err)
	}
}

func TestWorker_RunStopsWhenContextCancelled(t *testing.T) {
	cfg := config.OutputConfig{PortName: "/dev/does-not-exist-opcbridge-test", Protocol: config.ProtocolAdaLight, BaudRate: 115200}
	w, _, _ := newTestWorker(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
