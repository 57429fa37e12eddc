package synth

import (
	"fmt"
	"strings"
)

// DefaultMixCap is the fixed divisor used on the real-time path.
const DefaultMixCap = 4

// Policy selects how a Mixer normalizes the sum of its voices.
type Policy int

const (
	// PolicyFixedCap divides by a fixed cap regardless of how many voices
	// sound. Loudness per voice stays constant; more voices than the cap can
	// exceed full scale and are clipped when narrowed.
	PolicyFixedCap Policy = iota
	// PolicyDynamic divides by the number of live voices.
	PolicyDynamic
)

// ParsePolicy accepts "fixed" or "dynamic".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fixed", "fixed_cap", "fixed-cap":
		return PolicyFixedCap, nil
	case "dynamic":
		return PolicyDynamic, nil
	}
	return 0, fmt.Errorf("synth: unknown mix policy %q", s)
}

func (p Policy) String() string {
	if p == PolicyDynamic {
		return "dynamic"
	}
	return "fixed"
}

// Mixer combines voices into one sample per channel.
type Mixer struct {
	policy Policy
	limit  int
}

// FixedCap returns a mixer dividing every sum by n (at least 1).
func FixedCap(n int) Mixer {
	if n < 1 {
		n = 1
	}
	return Mixer{policy: PolicyFixedCap, limit: n}
}

// Dynamic returns a mixer dividing by the number of voices mixed.
func Dynamic() Mixer {
	return Mixer{policy: PolicyDynamic}
}

// NewMixer builds a mixer for the given policy. limit only applies to
// PolicyFixedCap.
func NewMixer(p Policy, limit int) Mixer {
	if p == PolicyDynamic {
		return Dynamic()
	}
	return FixedCap(limit)
}

// Policy returns the normalization policy.
func (m Mixer) Policy() Policy { return m.policy }

// Divisor returns what a sum of active voices is divided by.
func (m Mixer) Divisor(active int) float64 {
	if m.policy == PolicyDynamic {
		return float64(active)
	}
	if m.limit < 1 {
		return DefaultMixCap
	}
	return float64(m.limit)
}

// Mix returns the normalized sum of every voice's sample on channel ch.
// An empty set mixes to silence.
func (m Mixer) Mix(voices []Voice, ch int) float64 {
	if len(voices) == 0 {
		return 0
	}
	var sum float64
	for _, v := range voices {
		sum += v.Generate(ch)
	}
	return sum / m.Divisor(len(voices))
}

func (m Mixer) String() string {
	if m.policy == PolicyDynamic {
		return "dynamic"
	}
	return fmt.Sprintf("fixed(%d)", int(m.Divisor(0)))
}
