// SPDX-License-Identifier: Apache-2.0

package config

import "testing"

func TestParse_Minimal(t *testing.T) {
	data := []byte(`{
		"opc": {"host": "0.0.0.0", "port": 7890},
		"outputs": [
			{"port": "/dev/ttyUSB0", "protocol": "adalight", "baud_rate": 115200, "led_count": 10}
		]
	}`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.OPC.Port != 7890 {
		t.Errorf("port = %d, want 7890", cfg.OPC.Port)
	}
	if len(cfg.Outputs) != 1 {
		t.Fatalf("len(Outputs) = %d, want 1", len(cfg.Outputs))
	}
	out := cfg.Outputs[0]
	if out.Protocol != ProtocolAdaLight {
		t.Errorf("Protocol = %v, want adalight", out.Protocol)
	}
	if out.PixelFormat != PixelFormatRGB {
		t.Errorf("PixelFormat = %v, want RGB (default)", out.PixelFormat)
	}
	if out.HandshakeBaudRate != defaultHandshakeBaud {
		t.Errorf("HandshakeBaudRate = %d, want %d", out.HandshakeBaudRate, defaultHandshakeBaud)
	}
	if out.OPCChannel != 0 {
		t.Errorf("OPCChannel = %d, want 0 (default)", out.OPCChannel)
	}
}

func TestParse_WLEDHandshakeOverride(t *testing.T) {
	data := []byte(`{
		"opc": {"host": "0.0.0.0", "port": 7890},
		"outputs": [
			{"port": "/dev/ttyACM0", "protocol": "wled", "hardware_type": "wled",
			 "baud_rate": 2000000, "handshake_baud_rate": 115200,
			 "led_count": 64, "opc_channel": 1, "opc_offset": 0, "pixel_format": "GRB"}
		]
	}`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out := cfg.Outputs[0]
	if !out.IsWLED() {
		t.Error("IsWLED() = false, want true")
	}
	if out.BaudRate != 2000000 {
		t.Errorf("BaudRate = %d, want 2000000", out.BaudRate)
	}
	if out.PixelFormat != PixelFormatGRB {
		t.Errorf("PixelFormat = %v, want GRB", out.PixelFormat)
	}
}

func TestParse_Defaults(t *testing.T) {
	data := []byte(`{
		"opc": {},
		"outputs": [{"port": "/dev/ttyUSB0", "protocol": "adalight", "baud_rate": 115200, "led_count": 1}]
	}`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.OPC.Host != "0.0.0.0" || cfg.OPC.Port != 7890 {
		t.Errorf("defaults = %+v, want 0.0.0.0:7890", cfg.OPC)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no outputs", `{"opc":{"host":"h","port":1},"outputs":[]}`},
		{"bad protocol", `{"opc":{"host":"h","port":1},"outputs":[{"port":"p","protocol":"nope","baud_rate":1,"led_count":1}]}`},
		{"bad pixel format", `{"opc":{"host":"h","port":1},"outputs":[{"port":"p","protocol":"adalight","baud_rate":1,"led_count":1,"pixel_format":"nope"}]}`},
		{"zero led count", `{"opc":{"host":"h","port":1},"outputs":[{"port":"p","protocol":"adalight","baud_rate":1,"led_count":0}]}`},
		{"missing port", `{"opc":{"host":"h","port":1},"outputs":[{"protocol":"adalight","baud_rate":1,"led_count":1}]}`},
		{"invalid json", `{not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("Parse: want error, got nil")
			}
		})
	}
}
