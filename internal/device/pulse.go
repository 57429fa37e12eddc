package device

import (
	"fmt"
	"sync/atomic"

	"github.com/jfreymuth/pulse"

	"github.com/satindergrewal/polysynth/internal/audio"
	"github.com/satindergrewal/polysynth/internal/pcm"
)

// Pulse plays through a PulseAudio (or PipeWire) server using the native
// protocol. It supports mono and stereo in every sample format.
type Pulse[S pcm.Sample] struct {
	puller[S]
	opts      Options
	client    *pulse.Client
	stream    playback
	live      atomic.Pointer[sampleRing[S]] // set once the ring exists
	scratch   []S
	underflow bool
}

var _ audio.Device[float32] = (*Pulse[float32])(nil)

// playback is the part of *pulse.PlaybackStream the device drives after
// negotiation.
type playback interface {
	Start()
	Pause()
	Resume()
	Drain()
	Close()
	Underflow() bool
	Error() error
}

// NewPulse returns an unconnected PulseAudio device.
func NewPulse[S pcm.Sample](opts Options) (*Pulse[S], error) {
	return &Pulse[S]{opts: opts}, nil
}

// Negotiate connects to the server and creates the playback stream. The
// rate, channel count and buffer size are read back from the stream.
func (p *Pulse[S]) Negotiate(req pcm.Request) (pcm.Params, error) {
	req = req.WithDefaults()
	var layout pulse.PlaybackOption
	switch req.Channels {
	case 1:
		layout = pulse.PlaybackMono
	case 2:
		layout = pulse.PlaybackStereo
	default:
		return pcm.Params{}, fmt.Errorf("device/pulse: %d channels not supported", req.Channels)
	}

	client, err := pulse.NewClient(pulse.ClientApplicationName(p.opts.AppName))
	if err != nil {
		return pcm.Params{}, fmt.Errorf("device/pulse: connect: %w", err)
	}
	stream, err := client.NewPlayback(p.reader(req.Format), layout,
		pulse.PlaybackSampleRate(int(req.Rate)),
		pulse.PlaybackLatency(req.BufferTime.Seconds()),
		pulse.PlaybackMediaName(p.opts.AppName),
	)
	if err != nil {
		client.Close()
		return pcm.Params{}, fmt.Errorf("device/pulse: create stream: %w", err)
	}
	p.client = client

	granted := req
	granted.Rate = uint32(stream.SampleRate())
	granted.Channels = uint32(stream.Channels())
	params := granted.Nearest()
	if frames := stream.BufferSize(); frames > 0 {
		periods := max(2, (frames+params.PeriodSize/2)/params.PeriodSize)
		params.BufferSize = periods * params.PeriodSize
	}
	p.attach(stream, params)
	return params, nil
}

// attach makes stream the output for params. Playback starts when the ring
// first fills and resumes when it refills after a recovery.
func (p *Pulse[S]) attach(stream playback, params pcm.Params) {
	p.stream = stream
	p.init(params, p.opts.Stall, func() error {
		stream.Start()
		return stream.Error()
	})
	p.resume = func() error {
		stream.Resume()
		return stream.Error()
	}
	p.live.Store(p.ring)
}

// reader runs on the client goroutine and plays silence until the ring is
// live.
func (p *Pulse[S]) reader(f pcm.Format) pulse.Reader {
	switch f {
	case pcm.S16LE:
		return pulse.Int16Reader(func(out []int16) (int, error) {
			pullInto(p.live.Load(), &p.scratch, out)
			return len(out), nil
		})
	case pcm.S32LE:
		return pulse.Int32Reader(func(out []int32) (int, error) {
			pullInto(p.live.Load(), &p.scratch, out)
			return len(out), nil
		})
	default:
		return pulse.Float32Reader(func(out []float32) (int, error) {
			pullInto(p.live.Load(), &p.scratch, out)
			return len(out), nil
		})
	}
}

func pullInto[S pcm.Sample, T int16 | int32 | float32](r *sampleRing[S], scratch *[]S, out []T) {
	if r == nil {
		clear(out)
		return
	}
	readConverted(r, scratch, out)
}

// WritePeriod queues one period. A server-side underflow is reported once
// per episode as audio.ErrUnderrun; Recover starts a new episode.
func (p *Pulse[S]) WritePeriod(period []S) (int, error) {
	if err := p.stream.Error(); err != nil {
		return 0, fmt.Errorf("device/pulse: %w", err)
	}
	if p.stream.Underflow() && !p.underflow {
		p.underflow = true
		return 0, fmt.Errorf("device/pulse: server underflow: %w", audio.ErrUnderrun)
	}
	return p.write(period)
}

// Recover pauses the stream and drops queued audio. Playback resumes, with
// the server's underflow mark cleared, once the buffer has refilled.
func (p *Pulse[S]) Recover(err error) error {
	if serr := p.stream.Error(); serr != nil {
		return fmt.Errorf("device/pulse: %w", serr)
	}
	p.stream.Pause()
	p.underflow = false
	p.recover()
	return nil
}

// Drain waits until the server has played everything written.
func (p *Pulse[S]) Drain() error {
	if p.stream == nil {
		return nil
	}
	if err := p.drain(); err != nil {
		return fmt.Errorf("device/pulse: drain: %w", err)
	}
	// A stream still paused by Recover has nothing to play and never drains.
	if p.started && !p.recovered {
		p.stream.Drain()
	}
	return p.stream.Error()
}

// Close releases the stream and the server connection.
func (p *Pulse[S]) Close() error {
	if p.ring != nil {
		p.ring.Close()
	}
	if p.stream != nil {
		p.stream.Close()
	}
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
