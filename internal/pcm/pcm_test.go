package pcm

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"
	"time"
)

func TestFormatOf(t *testing.T) {
	if got := FormatOf[int16](); got != S16LE {
		t.Errorf("FormatOf[int16] = %v, want s16le", got)
	}
	if got := FormatOf[int32](); got != S32LE {
		t.Errorf("FormatOf[int32] = %v, want s32le", got)
	}
	if got := FormatOf[float32](); got != F32LE {
		t.Errorf("FormatOf[float32] = %v, want f32le", got)
	}

	type level int16
	if got := FormatOf[level](); got != S16LE {
		t.Errorf("FormatOf[level] = %v, want s16le", got)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"s16", S16LE},
		{"S16LE", S16LE},
		{" int32 ", S32LE},
		{"f32", F32LE},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil {
			t.Errorf("ParseFormat(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseFormat("u8"); err == nil {
		t.Error("ParseFormat(u8) should fail")
	}
}

func TestNarrowClips(t *testing.T) {
	if got := Narrow[int16](40000); got != math.MaxInt16 {
		t.Errorf("Narrow[int16](40000) = %d, want %d", got, math.MaxInt16)
	}
	if got := Narrow[int16](-40000); got != math.MinInt16 {
		t.Errorf("Narrow[int16](-40000) = %d, want %d", got, math.MinInt16)
	}
	if got := Narrow[int16](1234.6); got != 1235 {
		t.Errorf("Narrow[int16](1234.6) = %d, want 1235", got)
	}
	if got := Narrow[int32](3e9); got != math.MaxInt32 {
		t.Errorf("Narrow[int32](3e9) = %d, want %d", got, math.MaxInt32)
	}
	if got := Narrow[float32](1.5); got != 1 {
		t.Errorf("Narrow[float32](1.5) = %v, want 1", got)
	}
	if got := Narrow[float32](-0.25); got != -0.25 {
		t.Errorf("Narrow[float32](-0.25) = %v, want -0.25", got)
	}
}

func TestFullScale(t *testing.T) {
	if S16LE.FullScale() != 32767 {
		t.Errorf("S16LE full scale = %v", S16LE.FullScale())
	}
	if F32LE.FullScale() != 1 {
		t.Errorf("F32LE full scale = %v", F32LE.FullScale())
	}
}

func TestSamplesToBytes(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 256}
	buf := SamplesToBytes(samples)
	if len(buf) != len(samples)*2 {
		t.Fatalf("SamplesToBytes length = %d, want %d", len(buf), len(samples)*2)
	}
	for i, want := range samples {
		if got := int16(binary.LittleEndian.Uint16(buf[i*2:])); got != want {
			t.Errorf("sample[%d] = %d, want %d", i, got, want)
		}
	}

	floats := []float32{0.5, -1}
	fbuf := SamplesToBytes(floats)
	if got := math.Float32frombits(binary.LittleEndian.Uint32(fbuf[4:])); got != -1 {
		t.Errorf("float sample[1] = %v, want -1", got)
	}
}

func TestRequestNearest(t *testing.T) {
	req := NewRequest(S16LE, 2, 500*time.Millisecond, 100*time.Millisecond)
	p := req.Nearest()
	if p.Rate != 44100 || p.Channels != 2 {
		t.Fatalf("Nearest = %v, want 44100Hz 2ch", p)
	}
	if p.PeriodSize != 4410 {
		t.Errorf("PeriodSize = %d, want 4410", p.PeriodSize)
	}
	if p.BufferSize != 5*4410 {
		t.Errorf("BufferSize = %d, want %d", p.BufferSize, 5*4410)
	}
	if p.PeriodSamples() != 8820 {
		t.Errorf("PeriodSamples = %d, want 8820", p.PeriodSamples())
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestRequestNearestMinimums(t *testing.T) {
	req := Request{Rate: 8000, Channels: 1, Format: S16LE, BufferTime: time.Microsecond, PeriodTime: time.Microsecond}
	p := req.Nearest()
	if p.PeriodSize != 1 {
		t.Errorf("PeriodSize = %d, want 1", p.PeriodSize)
	}
	if p.BufferSize < 2*p.PeriodSize {
		t.Errorf("BufferSize = %d, want at least two periods", p.BufferSize)
	}
}

func TestParamsValidate(t *testing.T) {
	err := Params{}.Validate()
	if err == nil {
		t.Fatal("zero Params should not validate")
	}
	for _, want := range []string{"channel", "rate", "period", "format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}

	p := Params{Channels: 1, Rate: 8000, PeriodSize: 64, BufferSize: 512}
	for _, f := range []Format{0, F32LE + 1, -1} {
		p.Format = f
		if err := p.Validate(); err == nil {
			t.Errorf("format %d validated", int(f))
		}
	}
	for _, f := range []Format{S16LE, S32LE, F32LE} {
		p.Format = f
		if err := p.Validate(); err != nil {
			t.Errorf("%s: %v", f, err)
		}
	}
}

func TestParamsTiming(t *testing.T) {
	p := Params{Channels: 1, Rate: 8000, PeriodSize: 64, BufferSize: 512, Format: S16LE}
	if got := p.PeriodDuration(); got != 8*time.Millisecond {
		t.Errorf("PeriodDuration = %v, want 8ms", got)
	}
	if got := p.PeriodsPerSecond(); got != 125 {
		t.Errorf("PeriodsPerSecond = %d, want 125", got)
	}
	if got := p.BufferDuration(); got != 64*time.Millisecond {
		t.Errorf("BufferDuration = %v, want 64ms", got)
	}
}
