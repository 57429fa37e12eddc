package synth

import "errors"

// Composite sounds several child voices as one.
type Composite struct {
	children []Voice
	mixer    Mixer
	filters  Chain
	tick     Ticks
}

// CompositeOption configures a Composite.
type CompositeOption func(*Composite)

// WithMixer overrides the default fixed cap of len(children).
func WithMixer(m Mixer) CompositeOption {
	return func(c *Composite) { c.mixer = m }
}

// WithFilters applies a chain to the mixed output.
func WithFilters(f ...Filter) CompositeOption {
	return func(c *Composite) { c.filters = c.filters.Append(f...) }
}

// NewComposite groups children. By default the mix divides by the number of
// children, so the remaining ones keep their level as others finish.
func NewComposite(children []Voice, opts ...CompositeOption) (*Composite, error) {
	if len(children) == 0 {
		return nil, errors.New("synth: composite needs at least one voice")
	}
	c := &Composite{
		children: children,
		mixer:    FixedCap(len(children)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (*Composite) voice() {}

// Generate implements Voice. Completed children are left out of the mix.
func (c *Composite) Generate(ch int) float64 {
	var sum float64
	active := 0
	for _, v := range c.children {
		if v.IsComplete() {
			continue
		}
		sum += v.Generate(ch)
		active++
	}
	if active == 0 {
		return 0
	}
	return c.filters.Apply(sum/c.mixer.Divisor(active), c.tick, ch)
}

// Tick implements Voice.
func (c *Composite) Tick() {
	for _, v := range c.children {
		v.Tick()
	}
	c.tick++
}

// IsComplete reports whether every child has completed.
func (c *Composite) IsComplete() bool {
	for _, v := range c.children {
		if !v.IsComplete() {
			return false
		}
	}
	return true
}

// Len returns the number of children, complete or not.
func (c *Composite) Len() int { return len(c.children) }
