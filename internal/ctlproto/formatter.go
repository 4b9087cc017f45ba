// SPDX-License-Identifier: Apache-2.0

package ctlproto

import "fmt"

// CommandName returns the human-readable name for a Command, for the
// probe/dump CLI tools.
func CommandName(cmd Command) string {
	switch cmd {
	case CmdStatsQuery:
		return "STATS_QUERY"
	case CmdOutputList:
		return "OUTPUT_LIST"
	case CmdReconnectOutput:
		return "RECONNECT_OUTPUT"
	case CmdStatsReply:
		return "STATS_REPLY"
	case CmdOutputListReply:
		return "OUTPUT_LIST_REPLY"
	case CmdAck:
		return "ACK"
	case CmdError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(cmd))
	}
}

// FormatPacket renders a decoded Packet as a single summary line,
// decoding its payload by command when a decoder for it exists.
func FormatPacket(p Packet) string {
	header := fmt.Sprintf("%s (0x%02X) len=%d crc=0x%04X", CommandName(p.Command), uint8(p.Command), len(p.Payload), p.CRC)

	switch p.Command {
	case CmdStatsReply:
		r, err := DecodeStatsReply(p)
		if err != nil {
			return header + fmt.Sprintf(" [decode error: %v]", err)
		}
		return header + " " + formatStatsReply(r)
	case CmdOutputListReply:
		r, err := DecodeOutputListReply(p)
		if err != nil {
			return header + fmt.Sprintf(" [decode error: %v]", err)
		}
		return header + " " + formatOutputListReply(r)
	case CmdAck:
		r, err := DecodeAck(p)
		if err != nil {
			return header
		}
		return header + fmt.Sprintf(" %q", r.Message)
	case CmdError:
		r, err := DecodeError(p)
		if err != nil {
			return header
		}
		return header + fmt.Sprintf(" %q", r.Message)
	default:
		return header
	}
}

func formatStatsReply(r StatsReply) string {
	s := fmt.Sprintf("outputs=%d", len(r.Outputs))
	for _, o := range r.Outputs {
		s += fmt.Sprintf("\n  %s: received=%d written=%d dropped=%d+%d errors=%d rate=%.1f/s connected=%t",
			o.Name, o.Received, o.Written, o.DroppedReplaced, o.DroppedShort, o.WriteErrors, o.FrameRate, o.Connected)
	}
	return s
}

func formatOutputListReply(r OutputListReply) string {
	s := fmt.Sprintf("outputs=%d", len(r.Outputs))
	for _, o := range r.Outputs {
		s += fmt.Sprintf("\n  %s: protocol=%s channel=%d offset=%d led_count=%d baud=%d",
			o.Name, o.Protocol, o.Channel, o.Offset, o.LEDCount, o.BaudRate)
	}
	return s
}
