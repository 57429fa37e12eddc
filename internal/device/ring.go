package device

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/satindergrewal/polysynth/internal/pcm"
)

var errStalled = errors.New("device: playback stalled")

// sampleRing is the hand-off between the writer stage and a pull-based
// backend that reads from its own goroutine. Writes block while the ring is
// full. Reads never block: a short read is padded with silence.
//
// Nothing is handed to the reader until the ring is armed, which backends do
// once the ring first fills (the start threshold). A short read while armed
// marks the ring starved; the writer reports that as an underrun.
type sampleRing[S pcm.Sample] struct {
	readNotify chan struct{}

	mu         sync.Mutex
	buf        []S
	head, tail int64
	armed      bool
	starved    bool
	closeErr   error
}

func newSampleRing[S pcm.Sample](size int) *sampleRing[S] {
	return &sampleRing[S]{
		readNotify: make(chan struct{}, 1),
		buf:        make([]S, size),
	}
}

// Cap returns the ring size in samples.
func (r *sampleRing[S]) Cap() int { return len(r.buf) }

// Buffered returns the number of samples waiting to be read.
func (r *sampleRing[S]) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.tail - r.head)
}

// Free returns how many samples can be written without blocking.
func (r *sampleRing[S]) Free() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf) - int(r.tail-r.head)
}

// Write copies all of p into the ring, waiting for the reader when full. It
// fails if the reader makes no progress within stall.
func (r *sampleRing[S]) Write(p []S, stall time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(p) > 0 {
		if r.closeErr != nil {
			return r.closeErr
		}
		free := len(r.buf) - int(r.tail-r.head)
		if free == 0 {
			r.mu.Unlock()
			err := r.waitRead(stall)
			r.mu.Lock()
			if err != nil {
				return err
			}
			continue
		}
		n := min(free, len(p))
		for i := 0; i < n; i++ {
			r.buf[int((r.tail+int64(i))%int64(len(r.buf)))] = p[i]
		}
		r.tail += int64(n)
		p = p[n:]
	}
	return nil
}

func (r *sampleRing[S]) waitRead(stall time.Duration) error {
	t := time.NewTimer(stall)
	defer t.Stop()
	select {
	case <-r.readNotify:
		return nil
	case <-t.C:
		return fmt.Errorf("%w: no samples consumed for %v", errStalled, stall)
	}
}

// Read fills p from the ring and pads the rest with silence. It returns the
// number of real samples copied.
func (r *sampleRing[S]) Read(p []S) int {
	clear(p)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closeErr != nil || !r.armed {
		return 0
	}
	n := min(int(r.tail-r.head), len(p))
	for i := 0; i < n; i++ {
		p[i] = r.buf[int((r.head+int64(i))%int64(len(r.buf)))]
	}
	r.head += int64(n)
	if n < len(p) {
		r.starved = true
	}
	select {
	case r.readNotify <- struct{}{}:
	default:
	}
	return n
}

// Arm starts handing samples to the reader.
func (r *sampleRing[S]) Arm() {
	r.mu.Lock()
	r.armed = true
	r.mu.Unlock()
}

// Armed reports whether the start threshold has been reached.
func (r *sampleRing[S]) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}

// TakeStarved reports and clears the starved mark.
func (r *sampleRing[S]) TakeStarved() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.starved
	r.starved = false
	return s
}

// Reset discards buffered samples and disarms the ring so the reader hears
// silence until it fills again.
func (r *sampleRing[S]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = r.tail
	r.armed = false
	r.starved = false
}

// WaitEmpty blocks until the reader has taken every buffered sample. The
// ring must be armed.
func (r *sampleRing[S]) WaitEmpty(stall time.Duration) error {
	for {
		r.mu.Lock()
		done := r.head == r.tail || r.closeErr != nil
		r.mu.Unlock()
		if done {
			return nil
		}
		if err := r.waitRead(stall); err != nil {
			return err
		}
	}
}

// Close wakes any writer and makes further use fail.
func (r *sampleRing[S]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeErr == nil {
		r.closeErr = fmt.Errorf("device: ring: %w", io.ErrClosedPipe)
	}
	select {
	case r.readNotify <- struct{}{}:
	default:
	}
}
