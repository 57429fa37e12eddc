package config

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/satindergrewal/polysynth/internal/synth"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "polysynth.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device != "oto" {
		t.Errorf("Device = %q, want oto", cfg.Device)
	}
	if cfg.Rate != 44100 || cfg.Channels != 1 {
		t.Errorf("Rate/Channels = %d/%d, want 44100/1", cfg.Rate, cfg.Channels)
	}
	if cfg.BufferTime != 500*time.Millisecond || cfg.PeriodTime != 100*time.Millisecond {
		t.Errorf("Buffer/Period = %v/%v, want 500ms/100ms", cfg.BufferTime, cfg.PeriodTime)
	}
	if cfg.MixPolicy != "fixed" || cfg.MixCap != 4 {
		t.Errorf("mix = %s/%d, want fixed/4", cfg.MixPolicy, cfg.MixCap)
	}
	if cfg.Source != SourceLines {
		t.Errorf("Source = %q, want lines", cfg.Source)
	}
	if cfg.NoteDuration != 1500*time.Millisecond {
		t.Errorf("NoteDuration = %v", cfg.NoteDuration)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("POLYSYNTH_DEVICE", "pulse")
	t.Setenv("POLYSYNTH_FORMAT", "f32")
	t.Setenv("POLYSYNTH_RATE", "48000")
	t.Setenv("POLYSYNTH_CHANNELS", "2")
	t.Setenv("POLYSYNTH_PERIOD_TIME", "20ms")
	t.Setenv("POLYSYNTH_MIX_POLICY", "dynamic")
	t.Setenv("POLYSYNTH_PAN", "true")
	t.Setenv("POLYSYNTH_PAN_MIN", "0.25")
	t.Setenv("POLYSYNTH_INSTRUMENT", "chord")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device != "pulse" || cfg.Format != "f32" {
		t.Errorf("Device/Format = %q/%q", cfg.Device, cfg.Format)
	}
	if cfg.Rate != 48000 || cfg.Channels != 2 {
		t.Errorf("Rate/Channels = %d/%d", cfg.Rate, cfg.Channels)
	}
	if cfg.PeriodTime != 20*time.Millisecond {
		t.Errorf("PeriodTime = %v", cfg.PeriodTime)
	}
	if !cfg.Pan || cfg.PanMin != 0.25 {
		t.Errorf("Pan = %v/%v", cfg.Pan, cfg.PanMin)
	}
	m, err := cfg.Mixer()
	if err != nil || m.Policy() != synth.PolicyDynamic {
		t.Errorf("Mixer = %v, %v", m, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestEnvInvalidFallsBack(t *testing.T) {
	t.Setenv("POLYSYNTH_RATE", "not-a-number")
	t.Setenv("POLYSYNTH_BUFFER_TIME", "soon")
	t.Setenv("POLYSYNTH_PAN", "maybe")
	cfg, _ := Load("")
	if cfg.Rate != 44100 {
		t.Errorf("invalid int env should fall back: got %d", cfg.Rate)
	}
	if cfg.BufferTime != 500*time.Millisecond {
		t.Errorf("invalid duration env should fall back: got %v", cfg.BufferTime)
	}
	if cfg.Pan {
		t.Error("invalid bool env should fall back")
	}
}

func TestFileThenEnvPrecedence(t *testing.T) {
	path := writeFile(t, `
device: "null"
rate: 8000
channels: 2
buffer_time: 200ms
period_time: 25ms
fade_out: 1s
instrument: wavetable
source: demo
port: 9000
`)
	t.Setenv("POLYSYNTH_RATE", "16000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device != "null" || cfg.Channels != 2 || cfg.Instrument != "wavetable" || cfg.Source != "demo" || cfg.Port != 9000 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Rate != 16000 {
		t.Errorf("Rate = %d, env should override the file", cfg.Rate)
	}
	if cfg.BufferTime != 200*time.Millisecond || cfg.PeriodTime != 25*time.Millisecond || cfg.FadeOut != time.Second {
		t.Errorf("durations = %v %v %v", cfg.BufferTime, cfg.PeriodTime, cfg.FadeOut)
	}
	if cfg.FadeIn != 10*time.Millisecond {
		t.Errorf("FadeIn = %v, unset file keys should keep defaults", cfg.FadeIn)
	}

	req := cfg.Request()
	if req.Rate != 16000 || req.Channels != 2 || req.PeriodTime != 25*time.Millisecond {
		t.Errorf("Request = %+v", req)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := Load(writeFile(t, "period_time: often\n")); err == nil || !strings.Contains(err.Error(), "period_time") {
		t.Errorf("bad duration = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"device", func(c *Config) { c.Device = "alsa" }},
		{"format", func(c *Config) { c.Format = "u8" }},
		{"rate", func(c *Config) { c.Rate = 0 }},
		{"period longer than buffer", func(c *Config) { c.PeriodTime = time.Second }},
		{"mix policy", func(c *Config) { c.MixPolicy = "loudest" }},
		{"instrument", func(c *Config) { c.Instrument = "organ" }},
		{"sample without file", func(c *Config) { c.Instrument = "sample" }},
		{"pan direction", func(c *Config) { c.PanDirection = "up" }},
		{"byte order", func(c *Config) { c.SampleByteOrder = "middle" }},
		{"source", func(c *Config) { c.Source = "radio" }},
		{"score without file", func(c *Config) { c.Source = SourceScore }},
		{"http without port", func(c *Config) { c.Source = SourceHTTP }},
		{"stream without port", func(c *Config) { c.Device = DeviceStream }},
		{"port", func(c *Config) { c.Port = 70000 }},
	}
	for _, tt := range tests {
		cfg := Default()
		tt.modify(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: Validate accepted %+v", tt.name, cfg)
		}
	}

	cfg := Default()
	cfg.Device = DeviceStream
	cfg.Port = 8080
	if err := cfg.Validate(); err != nil {
		t.Errorf("stream with port: %v", err)
	}
}

func TestByteOrderAndDirection(t *testing.T) {
	cfg := Default()
	if o, _ := cfg.ByteOrder(); o != binary.BigEndian {
		t.Errorf("default byte order = %v", o)
	}
	cfg.SampleByteOrder = "LE"
	if o, _ := cfg.ByteOrder(); o != binary.LittleEndian {
		t.Errorf("LE = %v", o)
	}
	cfg.PanDirection = "rtl"
	if d, _ := cfg.Direction(); d != synth.RightToLeft {
		t.Errorf("rtl = %v", d)
	}
}
