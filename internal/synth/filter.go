package synth

// Filter transforms a generated sample given the voice's tick and the output
// channel. Filters are immutable once built.
type Filter interface {
	Apply(v float64, tick Ticks, ch int) float64
	filter()
}

// Chain applies filters in insertion order, each consuming the previous
// output.
type Chain []Filter

// Append returns the chain with f added at the end.
func (c Chain) Append(f ...Filter) Chain {
	return append(c, f...)
}

// Apply runs v through every filter.
func (c Chain) Apply(v float64, tick Ticks, ch int) float64 {
	for _, f := range c {
		v = f.Apply(v, tick, ch)
	}
	return v
}

// FadeIn ramps linearly from silence to full level over Duration ticks.
type FadeIn struct {
	Duration Ticks
}

// NewFadeIn returns a fade-in lasting d ticks.
func NewFadeIn(d Ticks) FadeIn {
	return FadeIn{Duration: d}
}

func (FadeIn) filter() {}

// Apply implements Filter.
func (f FadeIn) Apply(v float64, tick Ticks, _ int) float64 {
	if f.Duration == 0 || tick > f.Duration {
		return v
	}
	return v * float64(tick) / float64(f.Duration)
}

// FadeOut ramps linearly from full level to silence, reaching zero at End.
type FadeOut struct {
	Start, End Ticks
	Duration   Ticks
}

// NewFadeOut returns a fade-out of d ticks that ends at tick end. A duration
// longer than end starts the fade at tick 0.
func NewFadeOut(d, end Ticks) FadeOut {
	start := Ticks(0)
	if d < end {
		start = end - d
	}
	return FadeOut{Start: start, End: end, Duration: d}
}

func (FadeOut) filter() {}

// Apply implements Filter.
func (f FadeOut) Apply(v float64, tick Ticks, _ int) float64 {
	if f.Duration == 0 || tick < f.Start || tick > f.End {
		return v
	}
	return v * clampScale(1-float64(tick-f.Start)/float64(f.Duration))
}

// Direction selects which way a PanRamp moves the sound.
type Direction int

const (
	LeftToRight Direction = iota
	RightToLeft
)

func (d Direction) String() string {
	if d == RightToLeft {
		return "right-to-left"
	}
	return "left-to-right"
}

// PanRamp moves energy between channel 0 and channel 1 over Duration ticks.
// The two channels receive mirrored linear gain ramps between MinScale and
// MaxScale. Other channels pass through unchanged.
type PanRamp struct {
	MinScale, MaxScale float64
	Direction          Direction
	Duration           Ticks

	slope float64
}

// NewPanRamp returns a pan ramp with both scales clamped to [0, 1].
func NewPanRamp(minScale, maxScale float64, dir Direction, d Ticks) PanRamp {
	lo, hi := clampScale(minScale), clampScale(maxScale)
	if lo > hi {
		lo, hi = hi, lo
	}
	p := PanRamp{MinScale: lo, MaxScale: hi, Direction: dir, Duration: d}
	if d > 0 {
		p.slope = (hi - lo) / float64(d)
	}
	return p
}

func (PanRamp) filter() {}

// Gain returns the gain applied to channel ch at tick.
func (p PanRamp) Gain(tick Ticks, ch int) float64 {
	if tick > p.Duration {
		tick = p.Duration
	}
	var progress Ticks
	switch ch {
	case 0:
		progress = tick
	case 1:
		progress = p.Duration - tick
	default:
		return 1
	}
	if p.Direction == RightToLeft {
		return p.MinScale + p.slope*float64(progress)
	}
	return p.MaxScale - p.slope*float64(progress)
}

// Apply implements Filter.
func (p PanRamp) Apply(v float64, tick Ticks, ch int) float64 {
	return v * p.Gain(tick, ch)
}
