package stream

import (
	"context"
	"sync"
	"sync/atomic"
)

// Format describes the PCM frames a broadcaster carries.
type Format struct {
	Rate     int
	Channels int
}

// Broadcaster fans out PCM frames from one source to N listeners.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[*Listener]struct{}
	format    Format
	hasFormat bool
	dropped   atomic.Uint64
}

// Listener receives PCM frames from the broadcaster.
type Listener struct {
	C    chan []int16 // buffered channel of 20ms PCM frames
	done chan struct{}
}

// Done is closed when the listener is unsubscribed.
func (l *Listener) Done() <-chan struct{} { return l.done }

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		listeners: make(map[*Listener]struct{}),
	}
}

// SetFormat records the format of the frames that follow.
func (b *Broadcaster) SetFormat(f Format) {
	b.mu.Lock()
	b.format = f
	b.hasFormat = true
	b.mu.Unlock()
}

// Format returns the frame format once the device has been negotiated.
func (b *Broadcaster) Format() (Format, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.format, b.hasFormat
}

// Subscribe registers a new listener. Returns a Listener that receives frames.
func (b *Broadcaster) Subscribe() *Listener {
	l := &Listener{
		C:    make(chan []int16, 150), // ~3 seconds of buffer at 20ms/frame
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.listeners[l] = struct{}{}
	b.mu.Unlock()
	return l
}

// Unsubscribe removes a listener and signals it to stop.
func (b *Broadcaster) Unsubscribe(l *Listener) {
	b.mu.Lock()
	_, ok := b.listeners[l]
	delete(b.listeners, l)
	b.mu.Unlock()
	if ok {
		close(l.done)
	}
}

// ListenerCount returns the number of active listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Dropped returns how many frames were skipped for slow listeners.
func (b *Broadcaster) Dropped() uint64 { return b.dropped.Load() }

// Run reads frames from source and fans out to all listeners until source
// is closed or ctx is done, then releases every listener.
// Slow listeners get frames dropped rather than blocking the broadcast.
func (b *Broadcaster) Run(ctx context.Context, source <-chan []int16) {
	defer b.release()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-source:
			if !ok {
				return
			}
			b.publish(frame)
		}
	}
}

func (b *Broadcaster) publish(frame []int16) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for l := range b.listeners {
		select {
		case l.C <- frame:
		default:
			b.dropped.Add(1)
		}
	}
}

// release unsubscribes every listener so their handlers return.
func (b *Broadcaster) release() {
	b.mu.Lock()
	ls := b.listeners
	b.listeners = make(map[*Listener]struct{})
	b.mu.Unlock()
	for l := range ls {
		close(l.done)
	}
}
