// Package pcm defines the sample representations the engine can emit and the
// hardware parameters that describe a playback session.
//
// The engine mixes in float64 and narrows to the output sample type exactly
// once, when a period buffer is filled. The output type is a type parameter
// constrained by Sample.
package pcm

import (
	"fmt"
	"math"
	"strings"
	"unsafe"
)

// Sample is the set of output sample types a period buffer can hold.
type Sample interface {
	~int16 | ~int32 | ~float32
}

// Format identifies an interleaved little-endian sample encoding.
type Format int

const (
	// S16LE is signed 16-bit little-endian.
	S16LE Format = iota + 1
	// S32LE is signed 32-bit little-endian.
	S32LE
	// F32LE is IEEE-754 32-bit float little-endian, full scale 1.0.
	F32LE
)

// FormatOf returns the format matching the sample type S.
func FormatOf[S Sample]() Format {
	var half = 0.5
	if S(half) != 0 {
		return F32LE
	}
	var zero S
	if unsafe.Sizeof(zero) == 2 {
		return S16LE
	}
	return S32LE
}

// ParseFormat parses a format name such as "s16", "s32le" or "f32".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s16", "s16le", "int16":
		return S16LE, nil
	case "s32", "s32le", "int32":
		return S32LE, nil
	case "f32", "f32le", "float32":
		return F32LE, nil
	}
	return 0, fmt.Errorf("pcm: unknown format %q", s)
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool { return f >= S16LE && f <= F32LE }

// FullScale returns the largest positive sample value. Synthesis amplitudes
// are expressed as a fraction of this value.
func (f Format) FullScale() float64 {
	switch f {
	case S16LE:
		return math.MaxInt16
	case S32LE:
		return math.MaxInt32
	case F32LE:
		return 1
	}
	panic("pcm: invalid format")
}

// Bytes returns the size of one sample in bytes.
func (f Format) Bytes() int {
	switch f {
	case S16LE:
		return 2
	case S32LE, F32LE:
		return 4
	}
	panic("pcm: invalid format")
}

// String returns the short name of the format.
func (f Format) String() string {
	switch f {
	case S16LE:
		return "s16le"
	case S32LE:
		return "s32le"
	case F32LE:
		return "f32le"
	}
	return fmt.Sprintf("pcm.Format(%d)", int(f))
}

// Narrow converts a mixed value to S, clipping to the representable range.
// Integer types are rounded to the nearest value.
func Narrow[S Sample](v float64) S {
	switch FormatOf[S]() {
	case S16LE:
		return S(clip(math.Round(v), math.MinInt16, math.MaxInt16))
	case S32LE:
		return S(clip(math.Round(v), math.MinInt32, math.MaxInt32))
	default:
		return S(clip(v, -1, 1))
	}
}

func clip(v, lo, hi float64) float64 {
	if v > hi {
		return hi
	}
	if v < lo {
		return lo
	}
	return v
}
