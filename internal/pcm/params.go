package pcm

import (
	"errors"
	"fmt"
	"time"
)

// Access is the buffer access mode requested from a device.
type Access int

const (
	// AccessInterleaved writes frames with channels interleaved in one buffer.
	AccessInterleaved Access = iota
)

// Defaults used when a request leaves a field unset.
const (
	DefaultRate       = 44100
	DefaultChannels   = 1
	DefaultBufferTime = 500 * time.Millisecond
	DefaultPeriodTime = 100 * time.Millisecond
)

// Request holds the parameters asked of a device before negotiation. The
// device may grant different values.
type Request struct {
	Channels   uint32
	Rate       uint32
	Format     Format
	Access     Access
	BufferTime time.Duration
	PeriodTime time.Duration
}

// NewRequest returns a request for the given channel count and buffer timing
// at the default rate.
func NewRequest(format Format, channels uint32, bufferTime, periodTime time.Duration) Request {
	return Request{
		Channels:   channels,
		Rate:       DefaultRate,
		Format:     format,
		Access:     AccessInterleaved,
		BufferTime: bufferTime,
		PeriodTime: periodTime,
	}
}

// WithDefaults fills unset fields.
func (r Request) WithDefaults() Request {
	if r.Channels == 0 {
		r.Channels = DefaultChannels
	}
	if r.Rate == 0 {
		r.Rate = DefaultRate
	}
	if r.BufferTime <= 0 {
		r.BufferTime = DefaultBufferTime
	}
	if r.PeriodTime <= 0 {
		r.PeriodTime = DefaultPeriodTime
	}
	return r
}

// Nearest computes the parameters a device granting exactly the requested
// rate and channel count would confirm. Period size is the nearest frame
// count to PeriodTime (at least one frame) and the buffer is rounded to a
// whole number of periods, never fewer than two.
func (r Request) Nearest() Params {
	r = r.WithDefaults()
	period := int(framesIn(r.PeriodTime, r.Rate))
	if period < 1 {
		period = 1
	}
	periods := int((r.BufferTime + r.PeriodTime/2) / r.PeriodTime)
	if periods < 2 {
		periods = 2
	}
	return Params{
		Channels:   r.Channels,
		Rate:       r.Rate,
		PeriodSize: period,
		BufferSize: period * periods,
		Format:     r.Format,
	}
}

func framesIn(d time.Duration, rate uint32) int64 {
	return (int64(d)*int64(rate) + int64(time.Second)/2) / int64(time.Second)
}

// Params are the hardware-confirmed parameters of a playback session. They
// are created once by the writer stage and never modified.
type Params struct {
	Channels   uint32
	Rate       uint32
	PeriodSize int // frames per period
	BufferSize int // frames in the device buffer
	Format     Format
}

// Validate reports whether p can drive a session.
func (p Params) Validate() error {
	var errs []error
	if p.Channels < 1 {
		errs = append(errs, errors.New("channel count must be at least 1"))
	}
	if p.Rate == 0 {
		errs = append(errs, errors.New("rate must be positive"))
	}
	if p.PeriodSize <= 0 {
		errs = append(errs, errors.New("period size must be positive"))
	}
	if !p.Format.Valid() {
		errs = append(errs, fmt.Errorf("sample format %d is not supported", int(p.Format)))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("pcm: invalid params: %w", err)
	}
	return nil
}

// PeriodSamples returns the length of one interleaved period buffer.
func (p Params) PeriodSamples() int {
	return p.PeriodSize * int(p.Channels)
}

// PeriodsPerSecond returns how many periods the device drains per second.
func (p Params) PeriodsPerSecond() uint32 {
	return p.Rate / uint32(p.PeriodSize)
}

// PeriodDuration returns the playback time of one period.
func (p Params) PeriodDuration() time.Duration {
	return time.Duration(p.PeriodSize) * time.Second / time.Duration(p.Rate)
}

// BufferDuration returns the playback time of the device buffer.
func (p Params) BufferDuration() time.Duration {
	return time.Duration(p.BufferSize) * time.Second / time.Duration(p.Rate)
}

// String returns a compact description for logs.
func (p Params) String() string {
	return fmt.Sprintf("%s %dch %dHz period=%d buffer=%d", p.Format, p.Channels, p.Rate, p.PeriodSize, p.BufferSize)
}
