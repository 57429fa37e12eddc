// Package device provides the sound output backends used by the writer
// stage: oto, PulseAudio and a null device.
package device

import (
	"fmt"
	"slices"
	"time"

	"github.com/satindergrewal/polysynth/internal/audio"
	"github.com/satindergrewal/polysynth/internal/pcm"
)

// Backend names accepted by Open.
const (
	NameOto   = "oto"
	NamePulse = "pulse"
	NameNull  = "null"
)

// Names lists every backend Open knows.
func Names() []string {
	return []string{NameOto, NamePulse, NameNull}
}

// Known reports whether name is a backend Open knows.
func Known(name string) bool {
	return slices.Contains(Names(), name)
}

// Options tune a backend. Zero values pick defaults.
type Options struct {
	// AppName identifies the client to the sound server.
	AppName string
	// Stall bounds how long a write may wait for the backend to consume
	// samples before the device is considered dead.
	Stall time.Duration
	// Realtime paces the null device at the negotiated rate.
	Realtime bool
	// Record keeps a copy of every period the null device receives.
	Record bool
}

func (o Options) withDefaults() Options {
	if o.AppName == "" {
		o.AppName = "polysynth"
	}
	return o
}

// Open returns the named backend for sample type S.
func Open[S pcm.Sample](name string, opts Options) (audio.Device[S], error) {
	opts = opts.withDefaults()
	switch name {
	case NameOto:
		d, err := NewOto[S](opts)
		if err != nil {
			return nil, err
		}
		return d, nil
	case NamePulse:
		d, err := NewPulse[S](opts)
		if err != nil {
			return nil, err
		}
		return d, nil
	case NameNull:
		return NewNull[S](opts), nil
	}
	return nil, fmt.Errorf("device: unknown backend %q (want one of %v)", name, Names())
}

// puller adapts the push-style writer stage to backends that pull samples
// from their own goroutine.
type puller[S pcm.Sample] struct {
	ring    *sampleRing[S]
	params  pcm.Params
	stall   time.Duration
	started bool
	start   func() error

	// resume, when set, is called instead of start when the ring re-arms
	// after a recovery.
	resume    func() error
	recovered bool
}

func (p *puller[S]) init(params pcm.Params, stall time.Duration, start func() error) {
	if stall <= 0 {
		stall = max(4*params.BufferDuration(), 2*time.Second)
	}
	p.params = params
	p.stall = stall
	p.start = start
	p.ring = newSampleRing[S](params.BufferSize * int(params.Channels))
}

func (p *puller[S]) write(period []S) (int, error) {
	if p.ring.TakeStarved() {
		return 0, fmt.Errorf("device: playback starved: %w", audio.ErrUnderrun)
	}
	if err := p.ring.Write(period, p.stall); err != nil {
		return 0, err
	}
	if !p.ring.Armed() && p.ring.Free() < len(period) {
		if err := p.arm(); err != nil {
			return 0, err
		}
	}
	return len(period) / int(p.params.Channels), nil
}

// arm starts playback the first time the ring fills and re-arms it after a
// recovery.
func (p *puller[S]) arm() error {
	switch {
	case !p.started:
		if err := p.start(); err != nil {
			return err
		}
		p.started = true
	case p.recovered && p.resume != nil:
		if err := p.resume(); err != nil {
			return err
		}
	}
	p.recovered = false
	p.ring.Arm()
	return nil
}

func (p *puller[S]) recover() {
	p.ring.Reset()
	p.recovered = p.started
}

func (p *puller[S]) drain() error {
	if p.ring == nil || p.ring.Buffered() == 0 {
		return nil
	}
	if !p.ring.Armed() {
		if err := p.arm(); err != nil {
			return err
		}
	}
	return p.ring.WaitEmpty(p.stall)
}

// readConverted fills out from the ring, converting between sample types of
// the same format.
func readConverted[S pcm.Sample, T int16 | int32 | float32](r *sampleRing[S], scratch *[]S, out []T) int {
	if cap(*scratch) < len(out) {
		*scratch = make([]S, len(out))
	}
	buf := (*scratch)[:len(out)]
	n := r.Read(buf)
	for i, v := range buf {
		out[i] = T(v)
	}
	return n
}
