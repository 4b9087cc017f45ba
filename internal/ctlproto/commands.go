// SPDX-License-Identifier: Apache-2.0

package ctlproto

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// StatsQuery requests a StatsReply for every configured output.
// Carries no fields.
type StatsQuery struct{}

// OutputStat mirrors internal/stats.Snapshot's fields over the wire,
// keyed by small integers (via keyasint) to keep the CBOR encoding
// compact. A typed struct instead of a bare map[int]interface{}
// removes a layer of type-switching on the decode side.
type OutputStat struct {
	Name              string        `cbor:"0,keyasint"`
	Received          uint64        `cbor:"1,keyasint"`
	DroppedReplaced   uint64        `cbor:"2,keyasint"`
	DroppedShort      uint64        `cbor:"3,keyasint"`
	Written           uint64        `cbor:"4,keyasint"`
	WriteErrors       uint64        `cbor:"5,keyasint"`
	ReconnectCount    uint64        `cbor:"6,keyasint"`
	LastWriteDuration time.Duration `cbor:"7,keyasint"`
	LastError         string        `cbor:"8,keyasint"`
	FrameRate         float64       `cbor:"9,keyasint"`
	Connected         bool          `cbor:"10,keyasint"`
}

// StatsReply answers a StatsQuery with one OutputStat per configured output.
type StatsReply struct {
	Outputs []OutputStat `cbor:"0,keyasint"`
}

// OutputListQuery requests the bridge's static output configuration
// (not live counters — see StatsQuery for those).
type OutputListQuery struct{}

// OutputInfo describes one configured output's static configuration.
type OutputInfo struct {
	Name     string `cbor:"0,keyasint"`
	Protocol string `cbor:"1,keyasint"`
	Channel  byte   `cbor:"2,keyasint"`
	Offset   int    `cbor:"3,keyasint"`
	LEDCount int    `cbor:"4,keyasint"`
	BaudRate int    `cbor:"5,keyasint"`
}

// OutputListReply answers an OutputListQuery.
type OutputListReply struct {
	Outputs []OutputInfo `cbor:"0,keyasint"`
}

// ReconnectOutput names one output (by its configured port path) whose
// serial port a client wants cycled. internal/server's ControlServer
// answers it with an Ack and does not close the port.
type ReconnectOutput struct {
	Name string `cbor:"0,keyasint"`
}

// Ack acknowledges a command that has no richer reply of its own
// (e.g. ReconnectOutput).
type Ack struct {
	Message string `cbor:"0,keyasint"`
}

// ErrorReply reports that a command could not be satisfied.
type ErrorReply struct {
	Message string `cbor:"0,keyasint"`
}

// EncodeStatsQuery, EncodeOutputListQuery, etc. wrap Encode with the
// command byte each payload type always travels under, so callers
// never have to remember the pairing.

func EncodeStatsQuery() ([]byte, error) { return Encode(CmdStatsQuery, StatsQuery{}) }

func EncodeStatsReply(r StatsReply) ([]byte, error) { return Encode(CmdStatsReply, r) }

func EncodeOutputListQuery() ([]byte, error) { return Encode(CmdOutputList, OutputListQuery{}) }

func EncodeOutputListReply(r OutputListReply) ([]byte, error) {
	return Encode(CmdOutputListReply, r)
}

func EncodeReconnectOutput(name string) ([]byte, error) {
	return Encode(CmdReconnectOutput, ReconnectOutput{Name: name})
}

func EncodeAck(message string) ([]byte, error) { return Encode(CmdAck, Ack{Message: message}) }

func EncodeError(message string) ([]byte, error) {
	return Encode(CmdError, ErrorReply{Message: message})
}

// DecodeStatsReply unmarshals a Packet's payload as a StatsReply. It
// is an error to call this on a Packet whose Command isn't
// CmdStatsReply.
func DecodeStatsReply(p Packet) (StatsReply, error) {
	var r StatsReply
	if p.Command != CmdStatsReply {
		return r, fmt.Errorf("ctlproto: expected CmdStatsReply, got %#x", p.Command)
	}
	err := cbor.Unmarshal(p.Payload, &r)
	return r, err
}

// DecodeOutputListReply unmarshals a Packet's payload as an OutputListReply.
func DecodeOutputListReply(p Packet) (OutputListReply, error) {
	var r OutputListReply
	if p.Command != CmdOutputListReply {
		return r, fmt.Errorf("ctlproto: expected CmdOutputListReply, got %#x", p.Command)
	}
	err := cbor.Unmarshal(p.Payload, &r)
	return r, err
}

// DecodeReconnectOutput unmarshals a Packet's payload as a ReconnectOutput.
func DecodeReconnectOutput(p Packet) (ReconnectOutput, error) {
	var r ReconnectOutput
	if p.Command != CmdReconnectOutput {
		return r, fmt.Errorf("ctlproto: expected CmdReconnectOutput, got %#x", p.Command)
	}
	err := cbor.Unmarshal(p.Payload, &r)
	return r, err
}

// DecodeAck unmarshals a Packet's payload as an Ack.
func DecodeAck(p Packet) (Ack, error) {
	var r Ack
	if p.Command != CmdAck {
		return r, fmt.Errorf("ctlproto: expected CmdAck, got %#x", p.Command)
	}
	err := cbor.Unmarshal(p.Payload, &r)
	return r, err
}

// DecodeError unmarshals a Packet's payload as an ErrorReply.
func DecodeError(p Packet) (ErrorReply, error) {
	var r ErrorReply
	if p.Command != CmdError {
		return r, fmt.Errorf("ctlproto: expected CmdError, got %#x", p.Command)
	}
	err := cbor.Unmarshal(p.Payload, &r)
	return r, err
}
