// SPDX-License-Identifier: Apache-2.0

package ctlproto

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Encode builds a complete wire-formatted packet: start byte,
// byte-stuffed [length_hi, length_lo, command, cbor payload, crc_hi,
// crc_lo], end byte. v is CBOR-marshaled to form the payload.
func Encode(cmd Command, v interface{}) ([]byte, error) {
	payload, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ctlproto: encode payload: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("ctlproto: payload too large: %d bytes (max %d)", len(payload), MaxPayloadSize)
	}

	data := make([]byte, 0, 3+len(payload)+2)
	data = append(data, byte(len(payload)>>8), byte(len(payload)), byte(cmd))
	data = append(data, payload...)

	crc := CalculateCRC(data)
	data = append(data, byte(crc>>8), byte(crc))

	stuffed := stuffBytes(data)

	packet := make([]byte, 0, len(stuffed)+2)
	packet = append(packet, StartByte)
	packet = append(packet, stuffed...)
	packet = append(packet, EndByte)
	return packet, nil
}

// stuffBytes escapes StartByte/EndByte/EscByte occurrences inside data
// as EscByte followed by (byte XOR EscXor).
func stuffBytes(data []byte) []byte {
	result := make([]byte, 0, len(data)+4)
	for _, b := range data {
		if b == StartByte || b == EndByte || b == EscByte {
			result = append(result, EscByte, b^EscXor)
		} else {
			result = append(result, b)
		}
	}
	return result
}

// unstuffBytes reverses stuffBytes. The decoder unstuffs byte-at-a-time
// as bytes arrive rather than calling this; it exists as the tested
// round-trip inverse of stuffBytes.
func unstuffBytes(data []byte) ([]byte, error) {
	result := make([]byte, 0, len(data))
	escapeNext := false
	for _, b := range data {
		if escapeNext {
			result = append(result, b^EscXor)
			escapeNext = false
		} else if b == EscByte {
			escapeNext = true
		} else {
			result = append(result, b)
		}
	}
	if escapeNext {
		return nil, fmt.Errorf("ctlproto: incomplete escape sequence at end of data")
	}
	return result, nil
}
