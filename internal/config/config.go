package config

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/satindergrewal/polysynth/internal/device"
	"github.com/satindergrewal/polysynth/internal/instrument"
	"github.com/satindergrewal/polysynth/internal/pcm"
	"github.com/satindergrewal/polysynth/internal/synth"
)

// DeviceStream names the network output, which the CLI wires itself.
const DeviceStream = "stream"

// Input source names.
const (
	SourceLines = "lines"
	SourceMIDI  = "midi"
	SourceScore = "score"
	SourceDemo  = "demo"
	SourceHTTP  = "http"
)

var sources = []string{SourceLines, SourceMIDI, SourceScore, SourceDemo, SourceHTTP}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Config holds all runtime configuration. Precedence, lowest first:
// defaults, YAML file, POLYSYNTH_* environment, command-line flags.
type Config struct {
	// Output device
	Device     string        `yaml:"device"`
	Format     string        `yaml:"format"`
	Rate       int           `yaml:"rate"`
	Channels   int           `yaml:"channels"`
	BufferTime time.Duration `yaml:"-"`
	PeriodTime time.Duration `yaml:"-"`

	// Mixing
	MixPolicy   string `yaml:"mix_policy"`
	MixCap      int    `yaml:"mix_cap"`
	VoiceBuffer int    `yaml:"voice_buffer"`

	// Instrument
	Instrument   string        `yaml:"instrument"`
	FadeIn       time.Duration `yaml:"-"`
	FadeOut      time.Duration `yaml:"-"`
	Pan          bool          `yaml:"pan"`
	PanMin       float64       `yaml:"pan_min"`
	PanMax       float64       `yaml:"pan_max"`
	PanDirection string        `yaml:"pan_direction"`

	// Sample bank: raw signed 16-bit PCM
	Sample          string `yaml:"sample"`
	SampleRate      int    `yaml:"sample_rate"`
	SampleChannels  int    `yaml:"sample_channels"`
	SampleByteOrder string `yaml:"sample_byte_order"`
	CaptureSkip     int    `yaml:"capture_skip"`
	CaptureFrames   int    `yaml:"capture_frames"`

	// Input
	Source       string        `yaml:"source"`
	Score        string        `yaml:"score"`
	MIDIPort     string        `yaml:"midi_port"`
	NoteDuration time.Duration `yaml:"-"`

	// Server: 0 disables the HTTP listener
	Port        int    `yaml:"port"`
	OpusBitrate int    `yaml:"opus_bitrate"`
	MP3Bitrate  string `yaml:"mp3_bitrate"`
	FFmpeg      string `yaml:"ffmpeg"`
}

// durations are kept as strings in YAML ("500ms", "2s").
type fileDurations struct {
	BufferTime   string `yaml:"buffer_time"`
	PeriodTime   string `yaml:"period_time"`
	FadeIn       string `yaml:"fade_in"`
	FadeOut      string `yaml:"fade_out"`
	NoteDuration string `yaml:"note_duration"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Device:     device.NameOto,
		Format:     "s16",
		Rate:       pcm.DefaultRate,
		Channels:   pcm.DefaultChannels,
		BufferTime: pcm.DefaultBufferTime,
		PeriodTime: pcm.DefaultPeriodTime,

		MixPolicy: synth.PolicyFixedCap.String(),
		MixCap:    synth.DefaultMixCap,

		Instrument:   string(instrument.KindSine),
		FadeIn:       10 * time.Millisecond,
		FadeOut:      50 * time.Millisecond,
		PanMin:       0,
		PanMax:       1,
		PanDirection: synth.LeftToRight.String(),

		SampleRate:      44100,
		SampleChannels:  1,
		SampleByteOrder: "big",
		CaptureSkip:     10000,
		CaptureFrames:   64,

		Source:       SourceLines,
		NoteDuration: 1500 * time.Millisecond,

		Port:        0,
		OpusBitrate: 128000,
		MP3Bitrate:  "192k",
		FFmpeg:      "ffmpeg",
	}
}

// Load layers the YAML file at path (if any) and the environment over the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.mergeEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	var d fileDurations
	if err := yaml.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	for _, f := range []struct {
		key string
		src string
		dst *time.Duration
	}{
		{"buffer_time", d.BufferTime, &c.BufferTime},
		{"period_time", d.PeriodTime, &c.PeriodTime},
		{"fade_in", d.FadeIn, &c.FadeIn},
		{"fade_out", d.FadeOut, &c.FadeOut},
		{"note_duration", d.NoteDuration, &c.NoteDuration},
	} {
		if f.src == "" {
			continue
		}
		v, err := time.ParseDuration(f.src)
		if err != nil {
			return fmt.Errorf("config: %s: %s: %w", path, f.key, err)
		}
		*f.dst = v
	}
	return nil
}

func (c *Config) mergeEnv() {
	c.Device = envStr("POLYSYNTH_DEVICE", c.Device)
	c.Format = envStr("POLYSYNTH_FORMAT", c.Format)
	c.Rate = envInt("POLYSYNTH_RATE", c.Rate)
	c.Channels = envInt("POLYSYNTH_CHANNELS", c.Channels)
	c.BufferTime = envDuration("POLYSYNTH_BUFFER_TIME", c.BufferTime)
	c.PeriodTime = envDuration("POLYSYNTH_PERIOD_TIME", c.PeriodTime)

	c.MixPolicy = envStr("POLYSYNTH_MIX_POLICY", c.MixPolicy)
	c.MixCap = envInt("POLYSYNTH_MIX_CAP", c.MixCap)
	c.VoiceBuffer = envInt("POLYSYNTH_VOICE_BUFFER", c.VoiceBuffer)

	c.Instrument = envStr("POLYSYNTH_INSTRUMENT", c.Instrument)
	c.FadeIn = envDuration("POLYSYNTH_FADE_IN", c.FadeIn)
	c.FadeOut = envDuration("POLYSYNTH_FADE_OUT", c.FadeOut)
	c.Pan = envBool("POLYSYNTH_PAN", c.Pan)
	c.PanMin = envFloat("POLYSYNTH_PAN_MIN", c.PanMin)
	c.PanMax = envFloat("POLYSYNTH_PAN_MAX", c.PanMax)
	c.PanDirection = envStr("POLYSYNTH_PAN_DIRECTION", c.PanDirection)

	c.Sample = envStr("POLYSYNTH_SAMPLE", c.Sample)
	c.SampleRate = envInt("POLYSYNTH_SAMPLE_RATE", c.SampleRate)
	c.SampleChannels = envInt("POLYSYNTH_SAMPLE_CHANNELS", c.SampleChannels)
	c.SampleByteOrder = envStr("POLYSYNTH_SAMPLE_BYTE_ORDER", c.SampleByteOrder)

	c.Source = envStr("POLYSYNTH_SOURCE", c.Source)
	c.Score = envStr("POLYSYNTH_SCORE", c.Score)
	c.MIDIPort = envStr("POLYSYNTH_MIDI_PORT", c.MIDIPort)
	c.NoteDuration = envDuration("POLYSYNTH_NOTE_DURATION", c.NoteDuration)

	c.Port = envInt("POLYSYNTH_PORT", c.Port)
	c.OpusBitrate = envInt("POLYSYNTH_OPUS_BITRATE", c.OpusBitrate)
	c.MP3Bitrate = envStr("POLYSYNTH_MP3_BITRATE", c.MP3Bitrate)
	c.FFmpeg = envStr("POLYSYNTH_FFMPEG", c.FFmpeg)
}

// Validate rejects values no component accepts.
func (c Config) Validate() error {
	var errs []error
	if !device.Known(c.Device) && c.Device != DeviceStream {
		errs = append(errs, fmt.Errorf("device %q: want one of %v or %q", c.Device, device.Names(), DeviceStream))
	}
	if _, err := pcm.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}
	if c.Rate <= 0 || c.Channels <= 0 {
		errs = append(errs, fmt.Errorf("rate %d and channels %d must be positive", c.Rate, c.Channels))
	}
	if c.PeriodTime <= 0 || c.BufferTime < c.PeriodTime {
		errs = append(errs, fmt.Errorf("period %v must be positive and no longer than buffer %v", c.PeriodTime, c.BufferTime))
	}
	if _, err := c.Mixer(); err != nil {
		errs = append(errs, err)
	}
	kind, err := instrument.ParseKind(c.Instrument)
	if err != nil {
		errs = append(errs, err)
	}
	if kind == instrument.KindSample && c.Sample == "" {
		errs = append(errs, errors.New("instrument sample needs a sample file"))
	}
	if c.FadeIn < 0 || c.FadeOut < 0 {
		errs = append(errs, errors.New("fades must not be negative"))
	}
	if _, err := c.Direction(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ByteOrder(); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(sources, c.Source) {
		errs = append(errs, fmt.Errorf("source %q: want one of %v", c.Source, sources))
	}
	if c.Source == SourceScore && c.Score == "" {
		errs = append(errs, errors.New("source score needs a score file"))
	}
	if c.Source == SourceHTTP && c.Port == 0 {
		errs = append(errs, errors.New("source http needs a port"))
	}
	if c.Device == DeviceStream && c.Port == 0 {
		errs = append(errs, errors.New("device stream needs a port"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Request returns the device request. The format is set by the pipeline from
// its sample type.
func (c Config) Request() pcm.Request {
	return pcm.Request{
		Channels:   uint32(c.Channels),
		Rate:       uint32(c.Rate),
		Access:     pcm.AccessInterleaved,
		BufferTime: c.BufferTime,
		PeriodTime: c.PeriodTime,
	}
}

// Mixer returns the configured mixing policy.
func (c Config) Mixer() (synth.Mixer, error) {
	p, err := synth.ParsePolicy(c.MixPolicy)
	if err != nil {
		return synth.Mixer{}, err
	}
	return synth.NewMixer(p, c.MixCap), nil
}

// Direction returns the pan direction.
func (c Config) Direction() (synth.Direction, error) {
	switch strings.ToLower(c.PanDirection) {
	case "", "left-to-right", "ltr":
		return synth.LeftToRight, nil
	case "right-to-left", "rtl":
		return synth.RightToLeft, nil
	}
	return 0, fmt.Errorf("pan direction %q: want left-to-right or right-to-left", c.PanDirection)
}

// ByteOrder returns the sample file byte order.
func (c Config) ByteOrder() (binary.ByteOrder, error) {
	switch strings.ToLower(c.SampleByteOrder) {
	case "", "big", "be":
		return binary.BigEndian, nil
	case "little", "le":
		return binary.LittleEndian, nil
	}
	return nil, fmt.Errorf("sample byte order %q: want big or little", c.SampleByteOrder)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
