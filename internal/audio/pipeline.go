package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/satindergrewal/polysynth/internal/input"
	"github.com/satindergrewal/polysynth/internal/pcm"
	"github.com/satindergrewal/polysynth/internal/synth"
)

// BuildFunc turns a note event into a voice for the negotiated params.
type BuildFunc func(pcm.Params, input.Event) (synth.Voice, error)

// Config describes a playback session.
type Config[S pcm.Sample] struct {
	Open    OpenFunc[S]
	Request pcm.Request

	// Mixer normalizes the live voices. The zero value is a fixed cap of
	// synth.DefaultMixCap.
	Mixer synth.Mixer

	// VoiceBuffer is the capacity of the voice channel. Zero means
	// DefaultVoiceBuffer.
	VoiceBuffer int

	Build  BuildFunc
	Source input.Source // nil plays until the context is cancelled

	Logger *slog.Logger
}

// Pipeline runs the writer, generation and ingestion stages of one session.
// Periods flow from generation to the writer over a channel of capacity one,
// so generation is never more than one period ahead of the device.
type Pipeline[S pcm.Sample] struct {
	cfg     Config[S]
	log     *slog.Logger
	flag    *RunFlag
	params  *handoff[pcm.Params]
	barrier *barrier
	periods chan []S
	voices  chan synth.Voice
	stats   Stats
	started atomic.Bool
}

// NewPipeline validates cfg and returns a pipeline ready to Run.
func NewPipeline[S pcm.Sample](cfg Config[S]) (*Pipeline[S], error) {
	if cfg.Open == nil {
		return nil, errors.New("audio: config has no device opener")
	}
	if cfg.Build == nil {
		return nil, errors.New("audio: config has no voice builder")
	}
	if cfg.VoiceBuffer <= 0 {
		cfg.VoiceBuffer = DefaultVoiceBuffer
	}
	cfg.Request.Format = pcm.FormatOf[S]()
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline[S]{
		cfg:     cfg,
		log:     log,
		flag:    NewRunFlag(),
		params:  newHandoff[pcm.Params](),
		barrier: newBarrier(3),
		periods: make(chan []S, 1),
		voices:  make(chan synth.Voice, cfg.VoiceBuffer),
	}, nil
}

// Stop asks every stage to finish. Run returns once they have.
func (p *Pipeline[S]) Stop() { p.flag.Stop() }

// Running reports whether the session is still active.
func (p *Pipeline[S]) Running() bool { return p.flag.Running() }

// Params returns the negotiated parameters once the writer has published
// them.
func (p *Pipeline[S]) Params() (pcm.Params, bool) { return p.params.Load() }

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline[S]) Stats() Snapshot { return p.stats.Snapshot() }

// Run starts the three stages and blocks until all have exited. It returns
// the first stage error, or nil when the session ended by end of input,
// Stop or cancellation of ctx. Run may be called once.
func (p *Pipeline[S]) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return errors.New("audio: pipeline already ran")
	}

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, p.flag.Stop)
	defer stop()

	g.Go(p.stage("writer", p.runWriter))
	g.Go(p.stage("generate", p.runGenerate))
	g.Go(p.stage("ingest", func() error { return p.runIngest(gctx) }))

	err := g.Wait()
	p.flag.Stop()
	return err
}

// stage clears the run flag whenever fn returns so the other stages follow.
func (p *Pipeline[S]) stage(name string, fn func() error) func() error {
	return func() error {
		defer p.flag.Stop()
		err := fn()
		if err != nil {
			p.log.Error("audio: stage failed", "stage", name, "error", err)
		} else {
			p.log.Debug("audio: stage done", "stage", name)
		}
		return err
	}
}

func (p *Pipeline[S]) runWriter() (err error) {
	dev, err := p.cfg.Open()
	if err != nil {
		return fmt.Errorf("audio/writer: open device: %w: %w", ErrDeviceFatal, err)
	}
	defer func() {
		if err == nil {
			if derr := dev.Drain(); derr != nil {
				p.log.Warn("audio/writer: drain", "error", derr)
			}
		}
		if cerr := dev.Close(); cerr != nil {
			p.log.Warn("audio/writer: close", "error", cerr)
		}
	}()

	params, err := dev.Negotiate(p.cfg.Request)
	if err != nil {
		return fmt.Errorf("audio/writer: negotiate: %w: %w", ErrNegotiation, err)
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("audio/writer: negotiate: %w: %w", ErrNegotiation, err)
	}
	p.log.Info("audio: device ready",
		"format", params.Format.String(),
		"channels", params.Channels,
		"rate", params.Rate,
		"period", params.PeriodSize,
		"buffer", params.BufferSize)
	p.params.Set(params)

	done := p.flag.Done()
	if !p.barrier.Wait(done) {
		return nil
	}

	for p.flag.Running() {
		var period []S
		select {
		case <-done:
			return nil
		case buf, ok := <-p.periods:
			if !ok {
				if p.flag.Running() {
					return fmt.Errorf("audio/writer: %w", ErrChannelClosed)
				}
				return nil
			}
			period = buf
		}
		if err := p.write(dev, period, params); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline[S]) write(dev Device[S], period []S, params pcm.Params) error {
	n, err := dev.WritePeriod(period)
	if err == nil {
		p.stats.PeriodsWritten.Add(1)
		p.stats.FramesWritten.Add(uint64(n))
		if n < params.PeriodSize {
			p.log.Debug("audio/writer: short write", "frames", n, "period", params.PeriodSize)
		}
		return nil
	}
	if !Recoverable(err) {
		return fmt.Errorf("audio/writer: write period: %w: %w", ErrDeviceFatal, err)
	}

	p.stats.Underruns.Add(1)
	p.log.Warn("audio/writer: recovering device", "error", err)
	if rerr := dev.Recover(err); rerr != nil {
		return fmt.Errorf("audio/writer: recover: %w: %w", ErrDeviceFatal, rerr)
	}
	p.stats.Recoveries.Add(1)
	return nil
}

func (p *Pipeline[S]) runGenerate() error {
	defer close(p.periods)

	done := p.flag.Done()
	params, ok := p.params.Wait(done)
	if !ok {
		return nil
	}
	if !p.barrier.Wait(done) {
		return nil
	}

	reg := synth.NewRegistry(p.voices, p.cfg.Mixer)
	chs := int(params.Channels)
	frame := make([]float64, chs)

	// One buffer in the device, one in the channel, one being filled.
	var bufs [3][]S
	for i := range bufs {
		bufs[i] = make([]S, params.PeriodSamples())
	}

	for i := 0; p.flag.Running(); i++ {
		buf := bufs[i%len(bufs)]
		for f := 0; f < params.PeriodSize; f++ {
			reg.Cycle(frame)
			for ch, v := range frame {
				buf[f*chs+ch] = pcm.Narrow[S](v)
			}
		}
		p.stats.ActiveVoices.Store(int64(reg.Len()))
		p.stats.VoicesAccepted.Store(reg.Accepted())

		select {
		case p.periods <- buf:
			p.stats.PeriodsGenerated.Add(1)
		case <-done:
			return nil
		}
	}
	return nil
}

var errStopped = errors.New("audio: session stopped")

func (p *Pipeline[S]) runIngest(ctx context.Context) error {
	defer close(p.voices)

	done := p.flag.Done()
	params, ok := p.params.Wait(done)
	if !ok {
		return nil
	}
	if !p.barrier.Wait(done) {
		return nil
	}

	if p.cfg.Source == nil {
		<-done
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := p.cfg.Source.Run(ctx, func(ev input.Event) error {
		v, err := p.cfg.Build(params, ev)
		if err != nil {
			p.stats.EventsRejected.Add(1)
			p.log.Warn("audio/ingest: event rejected", "event", ev.String(), "error", err)
			return nil
		}
		select {
		case p.voices <- v:
			p.log.Debug("audio/ingest: voice queued", "event", ev.String())
			return nil
		case <-done:
			return errStopped
		}
	})

	switch {
	case err == nil, errors.Is(err, input.ErrEndOfInput):
		p.log.Info("audio: end of input")
		return nil
	case errors.Is(err, errStopped), !p.flag.Running() && ctx.Err() != nil:
		return nil
	default:
		return fmt.Errorf("audio/ingest: %w", err)
	}
}
