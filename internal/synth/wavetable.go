package synth

import (
	"errors"
	"math"
	"time"

	"github.com/satindergrewal/polysynth/internal/pcm"
)

// DefaultTableFrames is the length of the shared sine table.
const DefaultTableFrames = 1000

// Table is one period of a waveform, normalized to [-1, 1] and interleaved
// by channel. Tables are read-only once built and may be shared by any
// number of voices.
type Table struct {
	Data     []float64
	Channels int
}

// Frames returns the number of frames in the table.
func (t *Table) Frames() int {
	if t.Channels <= 0 {
		return 0
	}
	return len(t.Data) / t.Channels
}

// At returns the sample at frame i on channel ch.
func (t *Table) At(i, ch int) float64 {
	return t.Data[i*t.Channels+ch]
}

// SineTable returns one cycle of a sine wave sampled at frames points, with
// the same cycle on every channel.
func SineTable(frames, channels int) *Table {
	if frames <= 0 {
		frames = DefaultTableFrames
	}
	if channels <= 0 {
		channels = 1
	}
	data := make([]float64, frames*channels)
	for i := 0; i < frames; i++ {
		v := math.Sin(twoPi * float64(i) / float64(frames))
		for ch := 0; ch < channels; ch++ {
			data[i*channels+ch] = v
		}
	}
	return &Table{Data: data, Channels: channels}
}

// Wavetable plays a Table at an arbitrary frequency with linear
// interpolation between stored samples.
type Wavetable struct {
	ticker
	table   *Table
	frames  float64
	state   channelState
	filters Chain
}

// NewWavetable builds a voice reading table. The initial index of each
// channel is derived from its config phase.
func NewWavetable(table *Table, configs []VoiceConfig, d time.Duration, p pcm.Params, filters ...Filter) (*Wavetable, error) {
	if err := checkVoiceArgs(configs, p); err != nil {
		return nil, err
	}
	if table == nil || table.Frames() == 0 {
		return nil, errors.New("synth: wavetable is empty")
	}
	chs := int(p.Channels)
	frames := float64(table.Frames())
	w := &Wavetable{
		ticker:  ticker{duration: durationTicks(d, p)},
		table:   table,
		frames:  frames,
		state:   newChannelState(chs),
		filters: Chain(filters),
	}
	full := p.Format.FullScale()
	for ch := 0; ch < chs; ch++ {
		c := configFor(configs, ch)
		w.state.pos[ch] = wrapPhase(c.Phase) / twoPi * frames
		w.state.step[ch] = frames * c.Frequency / float64(p.Rate)
		w.state.amp[ch] = c.AmplitudeScale * full
	}
	return w, nil
}

func (*Wavetable) voice() {}

// Generate implements Voice.
func (w *Wavetable) Generate(ch int) float64 {
	idx := w.state.pos[ch]
	i := int(idx)
	frac := idx - float64(i)
	tch := ch % w.table.Channels
	n := w.table.Frames()
	v := w.table.At(i%n, tch)
	if frac != 0 {
		next := w.table.At((i+1)%n, tch)
		v += (next - v) * frac
	}
	return w.filters.Apply(v*w.state.amp[ch], w.count, ch)
}

// Tick implements Voice.
func (w *Wavetable) Tick() {
	for ch := range w.state.pos {
		idx := w.state.pos[ch] + w.state.step[ch]
		if idx >= w.frames || idx < 0 {
			idx = math.Mod(idx, w.frames)
			if idx < 0 {
				idx += w.frames
			}
		}
		w.state.pos[ch] = idx
	}
	w.tick()
}

// IsComplete implements Voice.
func (w *Wavetable) IsComplete() bool { return w.complete() }

// Index returns the fractional table position of channel ch.
func (w *Wavetable) Index(ch int) float64 { return w.state.pos[ch] }
