// Package checksum implements the additive 16-bit word checksum used by
// Nortek-style instrument frames.
package checksum

import "encoding/binary"

// NortekSeed is the initial value of the Nortek frame checksum.
const NortekSeed uint16 = 0xB58C

// Compute sums the little-endian 16-bit words of b onto seed, wrapping at 16
// bits. A trailing odd byte is added as the low byte of a final word.
func Compute(seed uint16, b []byte) uint16 {
	sum := seed
	n := len(b) &^ 1
	for i := 0; i < n; i += 2 {
		sum += binary.LittleEndian.Uint16(b[i:])
	}
	if len(b)%2 == 1 {
		sum += uint16(b[len(b)-1])
	}
	return sum
}

// Verify reports whether the trailing little-endian word of frame equals the
// checksum of every byte before it.
func Verify(seed uint16, frame []byte) bool {
	if len(frame) < 2 {
		return false
	}
	body := frame[:len(frame)-2]
	return Compute(seed, body) == binary.LittleEndian.Uint16(frame[len(frame)-2:])
}

// Seal writes the checksum of frame[:len-2] into its last two bytes.
func Seal(seed uint16, frame []byte) {
	if len(frame) < 2 {
		return
	}
	binary.LittleEndian.PutUint16(frame[len(frame)-2:], Compute(seed, frame[:len(frame)-2]))
}
