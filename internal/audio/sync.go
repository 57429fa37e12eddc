package audio

import (
	"sync"
	"sync/atomic"
)

// RunFlag is the session-wide running state. It starts set; Stop clears it
// once and closes Done so blocked stages can observe the change.
type RunFlag struct {
	running atomic.Bool
	once    sync.Once
	done    chan struct{}
}

// NewRunFlag returns a flag in the running state.
func NewRunFlag() *RunFlag {
	f := &RunFlag{done: make(chan struct{})}
	f.running.Store(true)
	return f
}

// Running reports whether the session should continue.
func (f *RunFlag) Running() bool { return f.running.Load() }

// Stop clears the flag. It is safe to call more than once and from any
// goroutine.
func (f *RunFlag) Stop() {
	f.once.Do(func() {
		f.running.Store(false)
		close(f.done)
	})
}

// Done is closed when the flag is cleared.
func (f *RunFlag) Done() <-chan struct{} { return f.done }

// handoff publishes a single value to any number of waiters.
type handoff[T any] struct {
	once  sync.Once
	ready chan struct{}
	v     T
}

func newHandoff[T any]() *handoff[T] {
	return &handoff[T]{ready: make(chan struct{})}
}

// Set publishes v. Later calls are ignored.
func (h *handoff[T]) Set(v T) {
	h.once.Do(func() {
		h.v = v
		close(h.ready)
	})
}

// Wait blocks until a value is published or done is closed.
func (h *handoff[T]) Wait(done <-chan struct{}) (T, bool) {
	select {
	case <-h.ready:
		return h.v, true
	case <-done:
		var zero T
		return zero, false
	}
}

// Load returns the value if it has been published.
func (h *handoff[T]) Load() (T, bool) {
	select {
	case <-h.ready:
		return h.v, true
	default:
		var zero T
		return zero, false
	}
}

// barrier releases all parties once the last one arrives.
type barrier struct {
	mu      sync.Mutex
	waiting int
	release chan struct{}
}

func newBarrier(parties int) *barrier {
	return &barrier{waiting: parties, release: make(chan struct{})}
}

// Wait blocks until every party has called Wait, or done is closed. It
// reports whether the barrier was passed.
func (b *barrier) Wait(done <-chan struct{}) bool {
	b.mu.Lock()
	b.waiting--
	if b.waiting == 0 {
		close(b.release)
	}
	b.mu.Unlock()

	select {
	case <-b.release:
		return true
	case <-done:
		return false
	}
}
