// Package samplebank loads pre-recorded sample buffers and prepares them for
// playback: raw PCM decoding, rate conversion and wavetable capture.
package samplebank

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/satindergrewal/polysynth/internal/synth"
)

// Defaults for CapturePeriod, matching the cached piano C4 table.
const (
	DefaultSkipFrames    = 10000
	DefaultCaptureFrames = 64
)

// ErrEmpty reports a recording with no whole frames.
var ErrEmpty = errors.New("samplebank: empty recording")

// LoadRaw reads headerless signed 16-bit PCM, interleaved by channel, and
// normalizes it to [-1, 1). A trailing partial frame is dropped.
func LoadRaw(r io.Reader, channels int, rate uint32, order binary.ByteOrder) (*synth.Recording, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("samplebank: invalid channel count %d", channels)
	}
	if order == nil {
		order = binary.BigEndian
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("samplebank: read: %w", err)
	}
	frameBytes := 2 * channels
	n := len(raw) / frameBytes * channels
	if n == 0 {
		return nil, ErrEmpty
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = float64(int16(order.Uint16(raw[2*i:]))) / 32768.0
	}
	return &synth.Recording{Data: data, Channels: channels, Rate: rate}, nil
}

// LoadRawFile is LoadRaw on a file.
func LoadRawFile(path string, channels int, rate uint32, order binary.ByteOrder) (*synth.Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("samplebank: %w", err)
	}
	defer f.Close()
	return LoadRaw(f, channels, rate, order)
}

// Resample converts rec to the given rate. A recording already at that rate
// is returned as is.
func Resample(rec *synth.Recording, to uint32) (*synth.Recording, error) {
	if rec == nil || rec.Frames() == 0 {
		return nil, ErrEmpty
	}
	if to == 0 {
		return nil, errors.New("samplebank: target rate must be positive")
	}
	if rec.Rate == to || rec.Rate == 0 {
		return rec, nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(rec.Rate),
		OutputRate: float64(to),
		Channels:   rec.Channels,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("samplebank: create resampler: %w", err)
	}
	out, err := rs.Process(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("samplebank: resample: %w", err)
	}
	tail, err := rs.Flush()
	if err != nil {
		return nil, fmt.Errorf("samplebank: flush: %w", err)
	}
	out = append(out, tail...)
	out = out[:len(out)/rec.Channels*rec.Channels]
	for i, v := range out {
		out[i] = max(-1, min(1, v))
	}
	return &synth.Recording{Data: out, Channels: rec.Channels, Rate: to}, nil
}

// CapturePeriod copies frames frames starting after skip frames into a
// wavetable. Recordings too short for the skip are captured from the start.
func CapturePeriod(rec *synth.Recording, skip, frames int) (*synth.Table, error) {
	if rec == nil || rec.Frames() == 0 {
		return nil, ErrEmpty
	}
	if frames <= 0 {
		frames = DefaultCaptureFrames
	}
	if frames > rec.Frames() {
		return nil, fmt.Errorf("samplebank: recording has %d frames, want %d", rec.Frames(), frames)
	}
	if skip < 0 || skip+frames > rec.Frames() {
		skip = 0
	}
	chs := rec.Channels
	data := append([]float64(nil), rec.Data[skip*chs:(skip+frames)*chs]...)
	return &synth.Table{Data: data, Channels: chs}, nil
}
