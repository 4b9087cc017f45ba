// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates the bridge's JSON configuration
// file into typed, immutable records. Validation happens once at
// startup; everything downstream consumes the typed fields.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Protocol identifies which serial wire protocol an output speaks.
type Protocol int

const (
	ProtocolAdaLight Protocol = iota
	ProtocolAWA
	ProtocolWLED
)

func (p Protocol) String() string {
	switch p {
	case ProtocolAdaLight:
		return "adalight"
	case ProtocolAWA:
		return "awa"
	case ProtocolWLED:
		return "wled"
	default:
		return "unknown"
	}
}

func parseProtocol(s string) (Protocol, error) {
	switch s {
	case "adalight":
		return ProtocolAdaLight, nil
	case "awa":
		return ProtocolAWA, nil
	case "wled":
		return ProtocolWLED, nil
	default:
		return 0, fmt.Errorf("unknown protocol %q", s)
	}
}

// PixelFormat identifies the wire pixel layout an output expects.
type PixelFormat int

const (
	PixelFormatRGB PixelFormat = iota
	PixelFormatGRB
	PixelFormatBGR
	PixelFormatRGBW
	PixelFormatGRBW
	PixelFormatPassthrough
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGB:
		return "RGB"
	case PixelFormatGRB:
		return "GRB"
	case PixelFormatBGR:
		return "BGR"
	case PixelFormatRGBW:
		return "RGBW"
	case PixelFormatGRBW:
		return "GRBW"
	case PixelFormatPassthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// Stride returns the number of wire bytes per pixel for this format.
func (f PixelFormat) Stride() int {
	switch f {
	case PixelFormatRGBW, PixelFormatGRBW:
		return 4
	default:
		return 3
	}
}

func parsePixelFormat(s string) (PixelFormat, error) {
	switch s {
	case "", "RGB":
		return PixelFormatRGB, nil
	case "GRB":
		return PixelFormatGRB, nil
	case "BGR":
		return PixelFormatBGR, nil
	case "RGBW":
		return PixelFormatRGBW, nil
	case "GRBW":
		return PixelFormatGRBW, nil
	case "passthrough":
		return PixelFormatPassthrough, nil
	default:
		return 0, fmt.Errorf("unknown pixel_format %q", s)
	}
}

// defaultHandshakeBaud is WLED's default JSON/version-probe baud rate.
const defaultHandshakeBaud = 115200

// OutputConfig is one configured serial LED-controller destination.
// Immutable once loaded; Worker and Codec consume it read-only.
type OutputConfig struct {
	PortName          string
	Protocol          Protocol
	HardwareType      string // "" or "wled"
	BaudRate          int
	HandshakeBaudRate int
	LEDCount          int
	OPCChannel        byte
	OPCOffset         int
	PixelFormat       PixelFormat
}

// IsWLED reports whether this output should run the WLED baud
// negotiation state machine before emitting frames.
func (o OutputConfig) IsWLED() bool {
	return o.HardwareType == "wled" || o.Protocol == ProtocolWLED
}

// OPCConfig holds the inbound TCP listen address.
type OPCConfig struct {
	Host string
	Port int
}

// Config is the fully validated, typed configuration record handed to
// the bridge core by the (out-of-scope) config-loading collaborator.
type Config struct {
	OPC       OPCConfig
	TargetFPS int // 0 means unset
	Outputs   []OutputConfig
}

// wireConfig mirrors the on-disk JSON configuration schema.
type wireConfig struct {
	OPC struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"opc"`
	TargetFPS *int `json:"target_fps"`
	Outputs   []struct {
		Port              string `json:"port"`
		Protocol          string `json:"protocol"`
		HardwareType      string `json:"hardware_type"`
		BaudRate          int    `json:"baud_rate"`
		HandshakeBaudRate *int   `json:"handshake_baud_rate"`
		LEDCount          int    `json:"led_count"`
		OPCChannel        *int   `json:"opc_channel"`
		OPCOffset         int    `json:"opc_offset"`
		PixelFormat       string `json:"pixel_format"`
	} `json:"outputs"`
}

// Load reads and validates a configuration file from path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates and decodes raw JSON config bytes.
func Parse(data []byte) (Config, error) {
	var w wireConfig
	if err := json.Unmarshal(data, &w); err != nil {
		return Config{}, fmt.Errorf("config: invalid JSON: %w", err)
	}

	if w.OPC.Host == "" {
		w.OPC.Host = "0.0.0.0"
	}
	if w.OPC.Port == 0 {
		w.OPC.Port = 7890
	}
	if len(w.Outputs) == 0 {
		return Config{}, fmt.Errorf("config: no outputs defined")
	}

	cfg := Config{
		OPC: OPCConfig{Host: w.OPC.Host, Port: w.OPC.Port},
	}
	if w.TargetFPS != nil {
		cfg.TargetFPS = *w.TargetFPS
	}

	for i, o := range w.Outputs {
		proto, err := parseProtocol(o.Protocol)
		if err != nil {
			return Config{}, fmt.Errorf("config: output[%d]: %w", i, err)
		}
		format, err := parsePixelFormat(o.PixelFormat)
		if err != nil {
			return Config{}, fmt.Errorf("config: output[%d]: %w", i, err)
		}
		if o.Port == "" {
			return Config{}, fmt.Errorf("config: output[%d]: missing port", i)
		}
		if o.LEDCount < 1 {
			return Config{}, fmt.Errorf("config: output[%d]: led_count must be >= 1", i)
		}
		if o.BaudRate <= 0 {
			return Config{}, fmt.Errorf("config: output[%d]: baud_rate must be > 0", i)
		}
		channel := 0
		if o.OPCChannel != nil {
			channel = *o.OPCChannel
		}
		if channel < 0 || channel > 255 {
			return Config{}, fmt.Errorf("config: output[%d]: opc_channel out of range", i)
		}
		if o.OPCOffset < 0 {
			return Config{}, fmt.Errorf("config: output[%d]: opc_offset must be >= 0", i)
		}

		handshake := defaultHandshakeBaud
		if o.HandshakeBaudRate != nil {
			handshake = *o.HandshakeBaudRate
		}

		cfg.Outputs = append(cfg.Outputs, OutputConfig{
			PortName:          o.Port,
			Protocol:          proto,
			HardwareType:      o.HardwareType,
			BaudRate:          o.BaudRate,
			HandshakeBaudRate: handshake,
			LEDCount:          o.LEDCount,
			OPCChannel:        byte(channel),
			OPCOffset:         o.OPCOffset,
			PixelFormat:       format,
		})
	}

	return cfg, nil
}
