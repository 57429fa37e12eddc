package synth

import (
	"errors"

	"github.com/satindergrewal/polysynth/internal/pcm"
)

// Recording is a pre-loaded sample buffer, normalized to [-1, 1] and
// interleaved by channel. It is shared read-only between voices.
type Recording struct {
	Data     []float64
	Channels int
	Rate     uint32
}

// Frames returns the number of frames in the recording.
func (r *Recording) Frames() int {
	if r.Channels <= 0 {
		return 0
	}
	return len(r.Data) / r.Channels
}

// SampleVoice plays a Recording once from the start.
type SampleVoice struct {
	rec     *Recording
	frame   int
	gain    float64
	filters Chain
}

// NewSampleVoice returns a voice playing rec at scale of full scale.
// Frequency plays no part: the recording runs at its stored pitch.
func NewSampleVoice(rec *Recording, scale float64, p pcm.Params, filters ...Filter) (*SampleVoice, error) {
	if rec == nil || rec.Channels <= 0 {
		return nil, errors.New("synth: sample voice needs a recording")
	}
	return &SampleVoice{
		rec:     rec,
		gain:    clampScale(scale) * p.Format.FullScale(),
		filters: Chain(filters),
	}, nil
}

func (*SampleVoice) voice() {}

// Generate implements Voice. Once the recording is exhausted it returns 0.
func (s *SampleVoice) Generate(ch int) float64 {
	if s.IsComplete() {
		return 0
	}
	chs := s.rec.Channels
	v := s.rec.Data[s.frame*chs+ch%chs] * s.gain
	return s.filters.Apply(v, Ticks(s.frame), ch)
}

// Tick implements Voice.
func (s *SampleVoice) Tick() { s.frame++ }

// IsComplete implements Voice.
func (s *SampleVoice) IsComplete() bool {
	return s.frame*s.rec.Channels >= len(s.rec.Data)
}
