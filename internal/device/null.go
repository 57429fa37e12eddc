package device

import (
	"errors"
	"sync"
	"time"

	"github.com/satindergrewal/polysynth/internal/pcm"
)

var errNullClosed = errors.New("device/null: closed")

// Null accepts every period and discards it, optionally keeping a copy and
// optionally taking as long as real playback would.
type Null[S pcm.Sample] struct {
	opts   Options
	params pcm.Params
	next   time.Time

	mu      sync.Mutex
	periods [][]S
	frames  uint64
	closed  bool
}

// NewNull returns a null device.
func NewNull[S pcm.Sample](opts Options) *Null[S] {
	return &Null[S]{opts: opts}
}

// Negotiate grants the request as asked.
func (n *Null[S]) Negotiate(req pcm.Request) (pcm.Params, error) {
	req.Format = pcm.FormatOf[S]()
	n.params = req.Nearest()
	return n.params, nil
}

// WritePeriod implements audio.Device.
func (n *Null[S]) WritePeriod(period []S) (int, error) {
	if n.opts.Realtime {
		now := time.Now()
		if n.next.Before(now) {
			n.next = now
		}
		time.Sleep(n.next.Sub(now))
		n.next = n.next.Add(n.params.PeriodDuration())
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return 0, errNullClosed
	}
	if n.opts.Record {
		n.periods = append(n.periods, append([]S(nil), period...))
	}
	frames := len(period) / int(n.params.Channels)
	n.frames += uint64(frames)
	return frames, nil
}

// Recover implements audio.Device.
func (n *Null[S]) Recover(error) error {
	n.next = time.Time{}
	return nil
}

// Drain implements audio.Device.
func (n *Null[S]) Drain() error { return nil }

// Close implements audio.Device.
func (n *Null[S]) Close() error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	return nil
}

// Params returns the negotiated parameters.
func (n *Null[S]) Params() pcm.Params { return n.params }

// Frames returns the number of frames written.
func (n *Null[S]) Frames() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.frames
}

// Periods returns copies of the recorded periods.
func (n *Null[S]) Periods() [][]S {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]S(nil), n.periods...)
}
