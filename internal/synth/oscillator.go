package synth

import (
	"math"
	"time"

	"github.com/satindergrewal/polysynth/internal/pcm"
)

const twoPi = 2 * math.Pi

// Oscillator is a phase-accumulator sine voice.
type Oscillator struct {
	ticker
	state   channelState
	filters Chain
}

// NewOscillator builds a sine voice lasting d with one state per output
// channel of p.
func NewOscillator(configs []VoiceConfig, d time.Duration, p pcm.Params, filters ...Filter) (*Oscillator, error) {
	if err := checkVoiceArgs(configs, p); err != nil {
		return nil, err
	}
	chs := int(p.Channels)
	o := &Oscillator{
		ticker:  ticker{duration: durationTicks(d, p)},
		state:   newChannelState(chs),
		filters: Chain(filters),
	}
	full := p.Format.FullScale()
	for ch := 0; ch < chs; ch++ {
		c := configFor(configs, ch)
		o.state.pos[ch] = wrapPhase(c.Phase)
		o.state.step[ch] = twoPi * c.Frequency / float64(p.Rate)
		o.state.amp[ch] = c.AmplitudeScale * full
	}
	return o, nil
}

func (*Oscillator) voice() {}

// Generate implements Voice.
func (o *Oscillator) Generate(ch int) float64 {
	v := math.Sin(o.state.pos[ch]) * o.state.amp[ch]
	return o.filters.Apply(v, o.count, ch)
}

// Tick implements Voice.
func (o *Oscillator) Tick() {
	for ch := range o.state.pos {
		p := o.state.pos[ch] + o.state.step[ch]
		if p >= twoPi {
			p = wrapPhase(p)
		}
		o.state.pos[ch] = p
	}
	o.tick()
}

// IsComplete implements Voice.
func (o *Oscillator) IsComplete() bool { return o.complete() }

// Phase returns the current phase of channel ch in radians.
func (o *Oscillator) Phase(ch int) float64 { return o.state.pos[ch] }

// Amplitude returns the peak level of channel ch.
func (o *Oscillator) Amplitude(ch int) float64 { return o.state.amp[ch] }

func wrapPhase(p float64) float64 {
	p = math.Mod(p, twoPi)
	if p < 0 {
		p += twoPi
	}
	return p
}
