package pcm

import (
	"encoding/binary"
	"math"
)

// AppendLE appends the little-endian encoding of samples to dst.
func AppendLE[S Sample](dst []byte, samples []S) []byte {
	switch FormatOf[S]() {
	case S16LE:
		for _, s := range samples {
			dst = binary.LittleEndian.AppendUint16(dst, uint16(int16(s)))
		}
	case S32LE:
		for _, s := range samples {
			dst = binary.LittleEndian.AppendUint32(dst, uint32(int32(s)))
		}
	default:
		for _, s := range samples {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(s)))
		}
	}
	return dst
}

// SamplesToBytes converts samples to a new little-endian byte slice.
func SamplesToBytes[S Sample](samples []S) []byte {
	return AppendLE(make([]byte, 0, len(samples)*FormatOf[S]().Bytes()), samples)
}
