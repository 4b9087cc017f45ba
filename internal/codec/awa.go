// SPDX-License-Identifier: Apache-2.0

package codec

// awaMagic is the 3-byte AWA (HyperSerial) frame magic, 'A','w','a'.
var awaMagic = [3]byte{0x41, 0x77, 0x61}

// AWACodec builds AWA (HyperSerialPico) frames: the same 6-byte
// AdaLight-style header, then the pixel payload, then a 3-byte
// Fletcher-16-style trailer. Byte-for-byte match to HyperSerialPico's
// reference implementation, including its fletcher_ext == 'A' special
// case.
type AWACodec struct{}

func (AWACodec) Encode(pixels []byte, stride int) []byte {
	count := 0
	if stride > 0 {
		count = len(pixels) / stride
	}
	hi, lo := countMinusOneBytes(count)

	frame := make([]byte, 0, 6+len(pixels)+3)
	frame = append(frame, awaMagic[0], awaMagic[1], awaMagic[2], hi, lo, headerChecksum(hi, lo))
	frame = append(frame, pixels...)

	f1, f2, fExt := fletcher(pixels)
	frame = append(frame, f1, f2, fExt)
	return frame
}

// fletcher computes HyperSerialPico's three trailer bytes: two
// standard Fletcher-16 accumulators plus a position-XORed extension
// byte, with the 0x41 ('A') collision avoided by substituting 0xAA.
func fletcher(data []byte) (f1, f2, fExt byte) {
	var a1, a2, ext uint16
	for i, b := range data {
		a1 = (a1 + uint16(b)) % 255
		a2 = (a2 + a1) % 255
		ext = (ext + (uint16(b) ^ uint16(i))) % 255
	}
	if ext == 0x41 {
		ext = 0xAA
	}
	return byte(a1), byte(a2), byte(ext)
}
