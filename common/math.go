package common

import (
	"encoding/binary"
	"math"
)

// PutFloat32s writes values into dst as little-endian IEEE-754 floats, stopping at
// whichever of dst or values runs out first.
//
// Parameters:
//   - dst: destination byte slice
//   - values: the float values to encode
//
// Returns:
//   - int: number of bytes written
func PutFloat32s(dst []byte, values ...float32) int {
	n := 0
	for _, v := range values {
		if n+4 > len(dst) {
			break
		}
		binary.LittleEndian.PutUint32(dst[n:n+4], math.Float32bits(v))
		n += 4
	}
	return n
}

// Float32At decodes the little-endian float stored at byte offset off of src.
//
// Parameters:
//   - src: source byte slice
//   - off: byte offset of the float
//
// Returns:
//   - float32: the decoded value
func Float32At(src []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src[off : off+4]))
}
