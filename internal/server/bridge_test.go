// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ledbridge/opcbridge/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`{
		"opc": {"host": "127.0.0.1", "port": 0},
		"outputs": [
			{"port": "/dev/does-not-exist-opcbridge-a", "protocol": "adalight", "baud_rate": 115200, "led_count": 2, "opc_channel": 1},
			{"port": "/dev/does-not-exist-opcbridge-b", "protocol": "awa", "baud_rate": 115200, "led_count": 2, "opc_channel": 2}
		]
	}`))
	if err != nil {
		t.Fatalf("config.Parse: %v", err)
	}
	return cfg
}

func TestBridge_New_WiresOneWorkerPerOutput(t *testing.T) {
	cfg := testConfig(t)
	b := New(cfg)

	if len(b.workers) != 2 {
		t.Fatalf("workers = %d, want 2", len(b.workers))
	}
	if len(b.Router().Routes()) != 2 {
		t.Fatalf("routes = %d, want 2", len(b.Router().Routes()))
	}
	if len(b.Stats().Outputs()) != 2 {
		t.Fatalf("stats outputs = %d, want 2", len(b.Stats().Outputs()))
	}
}

func TestBridge_RunAcceptsClientsUntilCancelled(t *testing.T) {
	cfg := testConfig(t)
	b := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	var addr net.Addr
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if addr = b.Addr(); addr != nil {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if addr == nil {
		t.Fatal("bridge never bound a listen address")
	}

	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Write([]byte{0x01, 0x00, 0x00, 0x06, 1, 2, 3, 4, 5, 6})
	conn.Close()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
