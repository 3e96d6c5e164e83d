// Package vector holds float32 vector math and the little-endian blob codec
// shared by the index snapshot stores and the embedding cache.
package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SquaredL2 returns the squared Euclidean distance between a and b.
// Both vectors must have the same length; callers validate dimensions.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// Encode packs v as a little-endian sequence of IEEE 754 float32 values.
func Encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode restores a vector packed by Encode.
func Decode(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

// Clone returns a copy of v so stored vectors never alias caller memory.
func Clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
