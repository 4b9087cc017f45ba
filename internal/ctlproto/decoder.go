// SPDX-License-Identifier: Apache-2.0

package ctlproto

import "fmt"

const (
	stateIdle = iota
	stateLength1
	stateLength2
	stateCommand
	statePayload
	stateCRC1
	stateCRC2
)

// Decoder implements the control-plane packet decoder state machine,
// fed one byte at a time from a Unix-domain or loopback TCP
// connection.
type Decoder struct {
	state      int
	length     uint16
	command    Command
	payload    []byte
	crc        uint16
	crcSection []byte // length_hi+length_lo+command+payload, accumulated for CRC verification
	escapeNext bool
}

// NewDecoder returns a Decoder ready to read from the idle state.
func NewDecoder() *Decoder {
	return &Decoder{state: stateIdle}
}

// Reset returns the decoder to the idle state, discarding any
// in-progress packet.
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.length = 0
	d.payload = nil
	d.crc = 0
	d.crcSection = nil
	d.escapeNext = false
}

// DecodeByte feeds one wire byte through the state machine. It
// returns a complete, CRC-verified Packet once EndByte closes one
// out, or ok=false while the packet is still incomplete. A non-nil
// error means the in-progress packet was malformed and has been
// discarded; the decoder resyncs on the next StartByte regardless.
func (d *Decoder) DecodeByte(b byte) (pkt Packet, ok bool, err error) {
	if b == EscByte && !d.escapeNext {
		d.escapeNext = true
		return Packet{}, false, nil
	}

	raw := b
	if d.escapeNext {
		b ^= EscXor
		d.escapeNext = false
	}

	if raw == StartByte && !d.escapeNext {
		d.Reset()
		d.state = stateLength1
		return Packet{}, false, nil
	}

	if raw == EndByte && !d.escapeNext {
		if d.state != stateCRC2 {
			d.Reset()
			return Packet{}, false, fmt.Errorf("ctlproto: unexpected end byte in state %d", d.state)
		}
		calculated := CalculateCRC(d.crcSection)
		if calculated != d.crc {
			err := fmt.Errorf("ctlproto: CRC mismatch: expected 0x%04X, got 0x%04X", d.crc, calculated)
			d.Reset()
			return Packet{}, false, err
		}
		pkt = Packet{Command: d.command, Payload: d.payload, CRC: d.crc}
		d.Reset()
		return pkt, true, nil
	}

	switch d.state {
	case stateIdle:
		return Packet{}, false, nil

	case stateLength1:
		d.length = uint16(b) << 8
		d.crcSection = append(d.crcSection, b)
		d.state = stateLength2
		return Packet{}, false, nil

	case stateLength2:
		d.length |= uint16(b)
		d.crcSection = append(d.crcSection, b)
		if d.length > MaxPayloadSize {
			d.Reset()
			return Packet{}, false, fmt.Errorf("ctlproto: invalid length %d (max %d)", d.length, MaxPayloadSize)
		}
		d.payload = make([]byte, 0, d.length)
		d.state = stateCommand
		return Packet{}, false, nil

	case stateCommand:
		d.command = Command(b)
		d.crcSection = append(d.crcSection, b)
		if d.length == 0 {
			d.state = stateCRC1
		} else {
			d.state = statePayload
		}
		return Packet{}, false, nil

	case statePayload:
		if len(d.payload) >= MaxPayloadSize {
			d.Reset()
			return Packet{}, false, fmt.Errorf("ctlproto: payload exceeds max size")
		}
		d.payload = append(d.payload, b)
		d.crcSection = append(d.crcSection, b)
		if len(d.payload) >= int(d.length) {
			d.state = stateCRC1
		}
		return Packet{}, false, nil

	case stateCRC1:
		d.crc = uint16(b) << 8
		d.state = stateCRC2
		return Packet{}, false, nil

	case stateCRC2:
		d.crc |= uint16(b)
		return Packet{}, false, nil

	default:
		d.Reset()
		return Packet{}, false, fmt.Errorf("ctlproto: invalid decoder state %d", d.state)
	}
}
