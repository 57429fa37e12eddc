package synth

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/satindergrewal/polysynth/internal/pcm"
)

// Voice is one sound source. The set of implementations is closed:
// Oscillator, Wavetable, SampleVoice and Composite.
//
// For every output frame the caller invokes Generate once per channel and
// then Tick once. A voice is owned by a single goroutine at a time.
type Voice interface {
	// Generate returns the current sample for output channel ch.
	Generate(ch int) float64
	// Tick advances the voice by one frame.
	Tick()
	// IsComplete reports whether the voice has finished playing.
	IsComplete() bool

	voice()
}

var errNoConfigs = errors.New("synth: voice needs at least one channel config")

// channelState holds the per-channel values every periodic voice computes
// from its configs and the negotiated params.
type channelState struct {
	pos  []float64 // phase (radians) or table index
	step []float64
	amp  []float64
}

func newChannelState(n int) channelState {
	return channelState{
		pos:  make([]float64, n),
		step: make([]float64, n),
		amp:  make([]float64, n),
	}
}

func checkVoiceArgs(configs []VoiceConfig, p pcm.Params) error {
	if len(configs) == 0 {
		return errNoConfigs
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("synth: %w", err)
	}
	for _, c := range configs {
		if err := CheckFrequency(c.Frequency, p.Rate); err != nil {
			return err
		}
		if math.IsNaN(c.Phase) || math.IsInf(c.Phase, 0) {
			return fmt.Errorf("synth: phase %v is not finite", c.Phase)
		}
	}
	return nil
}

// CheckFrequency reports whether f can be played at rate: it must be finite
// and lie in [0, rate/2).
func CheckFrequency(f float64, rate uint32) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("synth: frequency %v is not finite", f)
	}
	if f < 0 || f >= float64(rate)/2 {
		return fmt.Errorf("synth: frequency %g Hz outside [0, %g) at %d Hz", f, float64(rate)/2, rate)
	}
	return nil
}

func durationTicks(d time.Duration, p pcm.Params) Ticks {
	return DurationToTicks(d, p.Rate)
}
