package stream

import (
	"errors"
	"fmt"
	"time"

	"github.com/satindergrewal/polysynth/internal/audio"
	"github.com/satindergrewal/polysynth/internal/pcm"
)

const (
	SampleRate    = 48000
	MaxChannels   = 2
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960 // samples per channel per 20ms frame
)

var errDeviceClosed = errors.New("stream: device closed")

// Device is an audio.Device that plays into a Broadcaster instead of a
// sound card. It always runs at 48 kHz with 20 ms periods, the Opus frame
// size, and releases one period per 20 ms of wall-clock time.
type Device struct {
	frames chan []int16
	b      *Broadcaster
	params pcm.Params
	next   time.Time
	closed bool
}

var _ audio.Device[int16] = (*Device)(nil)

// NewDevice returns a device publishing to b. Call Run on b with Frames to
// deliver the audio to listeners.
func NewDevice(b *Broadcaster) *Device {
	return &Device{
		frames: make(chan []int16, 8),
		b:      b,
	}
}

// Frames returns the channel of outgoing PCM frames (20ms each). It is
// closed by Close.
func (d *Device) Frames() <-chan []int16 {
	return d.frames
}

// Negotiate grants the stream format closest to req.
func (d *Device) Negotiate(req pcm.Request) (pcm.Params, error) {
	if req.Format != pcm.S16LE {
		return pcm.Params{}, fmt.Errorf("stream: format %s not supported, want s16le", req.Format)
	}
	req = req.WithDefaults()
	chs := req.Channels
	if chs > MaxChannels {
		chs = MaxChannels
	}
	periods := int((req.BufferTime + FrameDuration/2) / FrameDuration)
	if periods < 2 {
		periods = 2
	}
	d.params = pcm.Params{
		Channels:   chs,
		Rate:       SampleRate,
		PeriodSize: FrameSize,
		BufferSize: FrameSize * periods,
		Format:     pcm.S16LE,
	}
	d.b.SetFormat(Format{Rate: SampleRate, Channels: int(chs)})
	return d.params, nil
}

// WritePeriod publishes one period once its time slot arrives. A period
// arriving more than one period late reports audio.ErrUnderrun.
func (d *Device) WritePeriod(period []int16) (int, error) {
	if d.closed {
		return 0, errDeviceClosed
	}
	now := time.Now()
	if d.next.IsZero() {
		d.next = now
	}
	if late := now.Sub(d.next); late > FrameDuration {
		return 0, fmt.Errorf("stream: period %v late: %w", late.Round(time.Millisecond), audio.ErrUnderrun)
	}
	if wait := d.next.Sub(now); wait > 0 {
		time.Sleep(wait)
	}
	d.next = d.next.Add(FrameDuration)

	frame := make([]int16, len(period))
	copy(frame, period)
	select {
	case d.frames <- frame:
	default:
		// broadcaster behind; drop rather than stall the clock
	}
	return len(period) / int(d.params.Channels), nil
}

// Recover restarts the clock from the next write.
func (d *Device) Recover(err error) error {
	if d.closed {
		return errDeviceClosed
	}
	d.next = time.Time{}
	return nil
}

// Drain waits out the time slot of the last published period.
func (d *Device) Drain() error {
	if wait := time.Until(d.next); wait > 0 && !d.closed {
		time.Sleep(wait)
	}
	return nil
}

// Close stops the device and closes Frames.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	close(d.frames)
	return nil
}
