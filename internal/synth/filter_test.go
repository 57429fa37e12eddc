package synth

import (
	"math"
	"testing"
)

func TestFadeIn(t *testing.T) {
	f := NewFadeIn(100)
	if got := f.Apply(1000, 0, 0); got != 0 {
		t.Errorf("tick 0 = %v, want 0", got)
	}
	if got := f.Apply(1000, 50, 0); got != 500 {
		t.Errorf("tick 50 = %v, want 500", got)
	}
	for _, tick := range []Ticks{100, 101, 5000} {
		if got := f.Apply(1000, tick, 1); got != 1000 {
			t.Errorf("tick %d = %v, want unscaled 1000", tick, got)
		}
	}
}

func TestFadeOut(t *testing.T) {
	f := NewFadeOut(100, 1000)
	if f.Start != 900 {
		t.Fatalf("start = %d, want 900", f.Start)
	}
	for _, tick := range []Ticks{0, 899, 1001} {
		if got := f.Apply(1000, tick, 0); got != 1000 {
			t.Errorf("tick %d = %v, want unscaled", tick, got)
		}
	}
	prev := math.Inf(1)
	for tick := Ticks(900); tick <= 1000; tick++ {
		got := f.Apply(1000, tick, 0)
		if got >= prev {
			t.Fatalf("tick %d = %v, not below previous %v", tick, got, prev)
		}
		prev = got
	}
	if prev != 0 {
		t.Errorf("value at end = %v, want 0", prev)
	}

	long := NewFadeOut(500, 100)
	if long.Start != 0 {
		t.Errorf("fade longer than voice starts at %d, want 0", long.Start)
	}
}

func TestPanRampMirrorsChannels(t *testing.T) {
	p := NewPanRamp(0.2, 1, LeftToRight, 100)
	tests := []struct {
		tick        Ticks
		left, right float64
	}{
		{0, 1, 0.2},
		{50, 0.6, 0.6},
		{100, 0.2, 1},
		{400, 0.2, 1},
	}
	for _, tt := range tests {
		if got := p.Gain(tt.tick, 0); math.Abs(got-tt.left) > 1e-12 {
			t.Errorf("tick %d left gain = %v, want %v", tt.tick, got, tt.left)
		}
		if got := p.Gain(tt.tick, 1); math.Abs(got-tt.right) > 1e-12 {
			t.Errorf("tick %d right gain = %v, want %v", tt.tick, got, tt.right)
		}
	}
	if got := p.Apply(10, 30, 2); got != 10 {
		t.Errorf("channel 2 = %v, want passthrough", got)
	}

	rl := NewPanRamp(0.2, 1, RightToLeft, 100)
	if got := rl.Gain(0, 0); got != 0.2 {
		t.Errorf("right-to-left left gain at 0 = %v, want 0.2", got)
	}
	if got := rl.Gain(0, 1); math.Abs(got-1) > 1e-12 {
		t.Errorf("right-to-left right gain at 0 = %v, want 1", got)
	}
}

func TestPanRampClampsScales(t *testing.T) {
	p := NewPanRamp(-3, 2, LeftToRight, 10)
	if p.MaxScale != 1 || p.MinScale != 1 {
		t.Errorf("scales = [%v, %v], want both clamped to 1", p.MinScale, p.MaxScale)
	}
}

func TestChainAppliesInOrder(t *testing.T) {
	c := Chain{NewFadeIn(10)}.Append(NewFadeOut(10, 20))
	if got := c.Apply(100, 5, 0); got != 50 {
		t.Errorf("fade-in region = %v, want 50", got)
	}
	if got := c.Apply(100, 15, 0); got != 50 {
		t.Errorf("fade-out region = %v, want 50", got)
	}
	if got := Chain(nil).Apply(7, 3, 0); got != 7 {
		t.Errorf("empty chain = %v, want 7", got)
	}
}
