// SPDX-License-Identifier: Apache-2.0

// Package ctlproto implements the bridge's admin control-plane wire
// protocol: a byte-stuffed, CRC-16-CCITT-checked frame carrying a
// single command byte and a CBOR-encoded payload. It runs over the
// Unix-domain (or loopback TCP) control socket internal/server
// listens on, separate from the OPC data path.
package ctlproto

// Framing bytes. Any occurrence of these inside the length/command/
// payload/CRC section is escaped before transmission.
const (
	StartByte = 0x7E
	EndByte   = 0x7F
	EscByte   = 0x7D
	EscXor    = 0x20
)

// Packet size limits. The wire length field is two bytes (big-endian),
// wide enough to cover MaxPayloadSize.
const (
	MaxPayloadSize = 512
	MaxPacketSize  = MaxPayloadSize + 5 // length_hi + length_lo + command + payload + 2 CRC bytes
)

// CRC-16-CCITT configuration (poly 0x1021, init 0xFFFF).
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// Command identifies the kind of admin message a packet carries.
type Command uint8

// Admin command types. 0x01-0x0F are queries/commands sent by a
// client (probe, monitor); 0x80-0x8F are replies;
// 0xE0-0xEF are errors.
const (
	CmdStatsQuery      Command = 0x01
	CmdOutputList      Command = 0x02
	CmdReconnectOutput Command = 0x03
	CmdStatsReply      Command = 0x81
	CmdOutputListReply Command = 0x82
	CmdAck             Command = 0x83
	CmdError           Command = 0xE0
)
