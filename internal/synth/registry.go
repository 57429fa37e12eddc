package synth

// Registry holds the active voices of the generation stage and renders them
// one frame at a time. It is not safe for concurrent use; voices reach it
// through the incoming channel.
type Registry struct {
	incoming <-chan Voice
	closed   bool
	mixer    Mixer
	voices   []Voice
	accepted uint64
}

// NewRegistry returns a registry polling incoming for new voices. A nil
// channel is allowed; voices can then only be added with Add.
func NewRegistry(incoming <-chan Voice, mixer Mixer) *Registry {
	return &Registry{
		incoming: incoming,
		mixer:    mixer,
	}
}

// Add registers v directly.
func (r *Registry) Add(v Voice) {
	if v == nil {
		return
	}
	r.voices = append(r.voices, v)
	r.accepted++
}

// Cycle renders one frame into frame (one sample per channel). It accepts
// any voices waiting on the incoming channel, mixes every channel, ticks
// every voice and then drops the ones that have completed.
func (r *Registry) Cycle(frame []float64) {
	r.drain()

	for ch := range frame {
		frame[ch] = r.mixer.Mix(r.voices, ch)
	}
	for _, v := range r.voices {
		v.Tick()
	}
	r.prune()
}

func (r *Registry) drain() {
	if r.closed || r.incoming == nil {
		return
	}
	for {
		select {
		case v, ok := <-r.incoming:
			if !ok {
				r.closed = true
				return
			}
			r.Add(v)
		default:
			return
		}
	}
}

func (r *Registry) prune() {
	live := r.voices[:0]
	for _, v := range r.voices {
		if !v.IsComplete() {
			live = append(live, v)
		}
	}
	clear(r.voices[len(live):])
	r.voices = live
}

// Len returns the number of live voices.
func (r *Registry) Len() int { return len(r.voices) }

// Accepted returns how many voices have been registered in total.
func (r *Registry) Accepted() uint64 { return r.accepted }

// Closed reports whether the incoming channel has been closed.
func (r *Registry) Closed() bool { return r.closed }
