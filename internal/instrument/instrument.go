// Package instrument turns note events into fully configured voices. It runs
// on the ingestion stage, so everything a voice needs is built here and the
// generation stage only mixes.
package instrument

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/satindergrewal/polysynth/internal/input"
	"github.com/satindergrewal/polysynth/internal/pcm"
	"github.com/satindergrewal/polysynth/internal/samplebank"
	"github.com/satindergrewal/polysynth/internal/synth"
)

// Kind selects the synthesis method.
type Kind string

const (
	KindSine      Kind = "sine"
	KindWavetable Kind = "wavetable"
	KindSample    Kind = "sample"
	KindChord     Kind = "chord"
)

// Kinds lists every supported kind.
func Kinds() []Kind { return []Kind{KindSine, KindWavetable, KindSample, KindChord} }

// ParseKind accepts a kind name; the empty string is KindSine.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindSine, nil
	}
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("instrument: unknown kind %q", s)
}

// Chord intervals over the root: major third and perfect fifth.
var chordRatios = []float64{1, 5.0 / 4, 3.0 / 2}

// Config describes how every voice of an instrument sounds.
type Config struct {
	Kind    Kind
	FadeIn  time.Duration
	FadeOut time.Duration

	Pan          bool
	PanMin       float64
	PanMax       float64
	PanDirection synth.Direction

	// Table is played by KindWavetable; nil means a sine table.
	Table *synth.Table
	// Recording is played by KindSample.
	Recording *synth.Recording
	// Mixer combines chord tones; the zero value divides by the tone count.
	Mixer *synth.Mixer
}

// Instrument builds voices for one Config. Build is safe for concurrent use.
type Instrument struct {
	cfg Config

	mu      sync.Mutex
	sines   map[int]*synth.Table
	resampd map[uint32]*synth.Recording
}

// New checks cfg and returns an instrument.
func New(cfg Config) (*Instrument, error) {
	if cfg.Kind == "" {
		cfg.Kind = KindSine
	}
	if _, err := ParseKind(string(cfg.Kind)); err != nil {
		return nil, err
	}
	if cfg.Kind == KindSample && cfg.Recording == nil {
		return nil, errors.New("instrument: sample kind needs a recording")
	}
	if cfg.FadeIn < 0 || cfg.FadeOut < 0 {
		return nil, errors.New("instrument: fade durations must not be negative")
	}
	return &Instrument{
		cfg:     cfg,
		sines:   make(map[int]*synth.Table),
		resampd: make(map[uint32]*synth.Recording),
	}, nil
}

// Kind returns the synthesis method.
func (in *Instrument) Kind() Kind { return in.cfg.Kind }

// Build returns the voice for ev under the negotiated params. Filters are
// appended as fade-in, fade-out ending at the voice's last tick, then the pan
// ramp when the device has two or more channels.
func (in *Instrument) Build(p pcm.Params, ev input.Event) (synth.Voice, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("instrument: %w", err)
	}
	level := ev.Level()

	if in.cfg.Kind == KindSample {
		rec, err := in.recording(p.Rate)
		if err != nil {
			return nil, err
		}
		end := synth.Ticks(rec.Frames())
		return voice(synth.NewSampleVoice(rec, level, p, in.filters(p, end)...))
	}

	if ev.Freq <= 0 {
		return nil, fmt.Errorf("instrument: invalid frequency %v", ev.Freq)
	}
	if err := synth.CheckFrequency(ev.Freq, p.Rate); err != nil {
		return nil, fmt.Errorf("instrument: %w", err)
	}
	d := ev.Length()
	filters := in.filters(p, synth.DurationToTicks(d, p.Rate))

	switch in.cfg.Kind {
	case KindWavetable:
		return voice(synth.NewWavetable(in.table(int(p.Channels)), synth.Mono(ev.Freq, level), d, p, filters...))
	case KindChord:
		tones := make([]synth.Voice, 0, len(chordRatios))
		for _, r := range chordRatios {
			o, err := synth.NewOscillator(synth.Mono(ev.Freq*r, level), d, p)
			if err != nil {
				return nil, err
			}
			tones = append(tones, o)
		}
		opts := []synth.CompositeOption{synth.WithFilters(filters...)}
		if in.cfg.Mixer != nil {
			opts = append(opts, synth.WithMixer(*in.cfg.Mixer))
		}
		return voice(synth.NewComposite(tones, opts...))
	default:
		return voice(synth.NewOscillator(synth.Mono(ev.Freq, level), d, p, filters...))
	}
}

// voice keeps a failed constructor from yielding a non-nil interface.
func voice[V synth.Voice](v V, err error) (synth.Voice, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (in *Instrument) filters(p pcm.Params, end synth.Ticks) []synth.Filter {
	var chain synth.Chain
	if in.cfg.FadeIn > 0 {
		chain = chain.Append(synth.NewFadeIn(synth.DurationToTicks(in.cfg.FadeIn, p.Rate)))
	}
	if in.cfg.FadeOut > 0 {
		chain = chain.Append(synth.NewFadeOut(synth.DurationToTicks(in.cfg.FadeOut, p.Rate), end))
	}
	if in.cfg.Pan && p.Channels >= 2 {
		chain = chain.Append(synth.NewPanRamp(in.cfg.PanMin, in.cfg.PanMax, in.cfg.PanDirection, end))
	}
	return chain
}

func (in *Instrument) table(channels int) *synth.Table {
	if in.cfg.Table != nil {
		return in.cfg.Table
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	t, ok := in.sines[channels]
	if !ok {
		t = synth.SineTable(synth.DefaultTableFrames, channels)
		in.sines[channels] = t
	}
	return t
}

// recording returns the sample converted to rate, converting once per rate.
func (in *Instrument) recording(rate uint32) (*synth.Recording, error) {
	rec := in.cfg.Recording
	if rec.Rate == 0 || rec.Rate == rate {
		return rec, nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if r, ok := in.resampd[rate]; ok {
		return r, nil
	}
	r, err := samplebank.Resample(rec, rate)
	if err != nil {
		return nil, fmt.Errorf("instrument: %w", err)
	}
	in.resampd[rate] = r
	return r, nil
}
