package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/satindergrewal/polysynth/internal/audio"
	"github.com/satindergrewal/polysynth/internal/pcm"
)

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoOpts oto.NewContextOptions
	otoErr  error
)

func otoContext(opts oto.NewContextOptions) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&opts)
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx, otoOpts = ctx, opts
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoOpts.SampleRate != opts.SampleRate || otoOpts.ChannelCount != opts.ChannelCount || otoOpts.Format != opts.Format {
		return nil, fmt.Errorf("context already open at %d Hz, %d channels", otoOpts.SampleRate, otoOpts.ChannelCount)
	}
	return otoCtx, nil
}

// Oto plays through the platform audio API via ebitengine/oto. It supports
// 16-bit integer and 32-bit float samples.
type Oto[S pcm.Sample] struct {
	puller[S]
	opts   Options
	ctx    *oto.Context
	player *oto.Player
}

var _ audio.Device[int16] = (*Oto[int16])(nil)

// NewOto returns an unopened oto device. The platform context is created by
// Negotiate.
func NewOto[S pcm.Sample](opts Options) (*Oto[S], error) {
	switch f := pcm.FormatOf[S](); f {
	case pcm.S16LE, pcm.F32LE:
	default:
		return nil, fmt.Errorf("device/oto: sample format %s not supported", f)
	}
	return &Oto[S]{opts: opts}, nil
}

// Negotiate opens the platform context. oto plays at exactly the requested
// rate and channel count.
func (o *Oto[S]) Negotiate(req pcm.Request) (pcm.Params, error) {
	params := req.Nearest()
	format := oto.FormatSignedInt16LE
	if params.Format == pcm.F32LE {
		format = oto.FormatFloat32LE
	}
	ctx, err := otoContext(oto.NewContextOptions{
		SampleRate:   int(params.Rate),
		ChannelCount: int(params.Channels),
		Format:       format,
		BufferSize:   params.PeriodDuration(),
	})
	if err != nil {
		return pcm.Params{}, fmt.Errorf("device/oto: %w", err)
	}
	o.ctx = ctx
	o.init(params, o.opts.Stall, func() error {
		o.player.Play()
		return nil
	})
	o.player = ctx.NewPlayer(&otoReader[S]{ring: o.ring, size: params.Format.Bytes()})
	o.player.SetBufferSize(params.PeriodSamples() * params.Format.Bytes())
	return params, nil
}

// WritePeriod queues one period for playback.
func (o *Oto[S]) WritePeriod(period []S) (int, error) {
	if err := o.ctx.Err(); err != nil {
		return 0, fmt.Errorf("device/oto: %w", err)
	}
	return o.write(period)
}

// Recover drops queued audio and waits for the buffer to refill before
// playing again.
func (o *Oto[S]) Recover(err error) error {
	if cerr := o.ctx.Err(); cerr != nil {
		return fmt.Errorf("device/oto: %w", cerr)
	}
	o.recover()
	return nil
}

// Drain waits for queued samples and the player buffer to play out.
func (o *Oto[S]) Drain() error {
	if o.player == nil {
		return nil
	}
	if err := o.drain(); err != nil {
		return fmt.Errorf("device/oto: drain: %w", err)
	}
	deadline := time.Now().Add(o.stall)
	for o.player.IsPlaying() && o.player.BufferedSize() > 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("device/oto: drain: %w", errStalled)
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}

// Close stops playback. The process-wide context stays open.
func (o *Oto[S]) Close() error {
	if o.player != nil {
		o.player.Pause()
	}
	if o.ring != nil {
		o.ring.Close()
	}
	return nil
}

// otoReader serves the player from the ring, encoding little-endian bytes.
type otoReader[S pcm.Sample] struct {
	ring    *sampleRing[S]
	size    int
	scratch []S
}

func (r *otoReader[S]) Read(p []byte) (int, error) {
	n := len(p) / r.size
	if cap(r.scratch) < n {
		r.scratch = make([]S, n)
	}
	samples := r.scratch[:n]
	r.ring.Read(samples)
	pcm.AppendLE(p[:0], samples)
	return n * r.size, nil
}
