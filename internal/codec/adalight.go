// SPDX-License-Identifier: Apache-2.0

package codec

import "fmt"

// adaMagic is the 3-byte AdaLight frame magic, 'A','d','a'.
var adaMagic = [3]byte{0x41, 0x64, 0x61}

// AdaLightCodec builds and parses AdaLight frames: 3-byte magic, a
// (count-1) 16-bit big-endian LED count, an XOR checksum, then the raw
// pixel payload.
type AdaLightCodec struct{}

// Encode builds an AdaLight frame. The count field encodes N-1, not N
// — getting this wrong desyncs the receiver.
func (AdaLightCodec) Encode(pixels []byte, stride int) []byte {
	count := 0
	if stride > 0 {
		count = len(pixels) / stride
	}
	hi, lo := countMinusOneBytes(count)

	frame := make([]byte, 6+len(pixels))
	frame[0], frame[1], frame[2] = adaMagic[0], adaMagic[1], adaMagic[2]
	frame[3] = hi
	frame[4] = lo
	frame[5] = headerChecksum(hi, lo)
	copy(frame[6:], pixels)
	return frame
}

// DecodeHeader parses an AdaLight frame's 6-byte header and returns
// the decoded LED count. Used by tests and diagnostic tooling to
// verify round-trip fidelity; the hot path never decodes its own
// output.
func DecodeHeader(frame []byte) (ledCount int, err error) {
	if len(frame) < 6 {
		return 0, fmt.Errorf("codec: frame too short for header: %d bytes", len(frame))
	}
	if frame[0] != adaMagic[0] || frame[1] != adaMagic[1] || frame[2] != adaMagic[2] {
		return 0, fmt.Errorf("codec: bad magic % X", frame[:3])
	}
	hi, lo := frame[3], frame[4]
	if frame[5] != headerChecksum(hi, lo) {
		return 0, fmt.Errorf("codec: checksum mismatch: header=0x%02X want=0x%02X", frame[5], headerChecksum(hi, lo))
	}
	return (int(hi)<<8 | int(lo)) + 1, nil
}

// Payload returns the pixel bytes following a decoded AdaLight header.
func Payload(frame []byte) []byte {
	if len(frame) < 6 {
		return nil
	}
	return frame[6:]
}
