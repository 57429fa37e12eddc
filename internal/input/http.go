package input

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/satindergrewal/polysynth/internal/note"
)

// DefaultHTTPQueue bounds the notes waiting between the handler and Run.
const DefaultHTTPQueue = 32

// HTTP accepts notes posted as JSON:
//
//	POST /api/note {"note": "4a", "duration": 0.5, "velocity": 0.8}
//
// "freq" may replace "note". Duration is in seconds.
type HTTP struct {
	Duration time.Duration
	events   chan Event
}

// NewHTTP returns a handler queueing up to queue notes.
func NewHTTP(queue int) *HTTP {
	if queue <= 0 {
		queue = DefaultHTTPQueue
	}
	return &HTTP{events: make(chan Event, queue)}
}

type noteRequest struct {
	Note     string  `json:"note"`
	Freq     float64 `json:"freq"`
	Duration float64 `json:"duration"`
	Velocity float64 `json:"velocity"`
}

func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	ev := Event{Duration: h.Duration, Velocity: req.Velocity}
	switch {
	case req.Note != "":
		n, err := note.Parse(req.Note)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ev.Freq, ev.Label = n.Freq(), n.String()
	case req.Freq != 0:
		if !validFreq(req.Freq) {
			http.Error(w, fmt.Sprintf("freq must be within 0-%g Hz", MaxFreq), http.StatusBadRequest)
			return
		}
		ev.Freq = req.Freq
	default:
		http.Error(w, "note or freq required", http.StatusBadRequest)
		return
	}
	if req.Duration < 0 || req.Velocity < 0 || req.Velocity > 1 {
		http.Error(w, "duration must be positive and velocity within 0-1", http.StatusBadRequest)
		return
	}
	if req.Duration > 0 {
		ev.Duration = time.Duration(req.Duration * float64(time.Second))
	}

	select {
	case h.events <- ev:
	default:
		http.Error(w, "note queue full", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"ok":       true,
		"label":    ev.Label,
		"freq":     ev.Freq,
		"duration": ev.Length().Seconds(),
	})
}

// Run implements Source. It only returns when ctx is cancelled or emit fails.
func (h *HTTP) Run(ctx context.Context, emit func(Event) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-h.events:
			if err := emit(ev); err != nil {
				return err
			}
		}
	}
}
