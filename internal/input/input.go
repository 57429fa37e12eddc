// Package input produces note events for the ingestion stage: lines typed
// on a terminal, a MIDI keyboard, a timed score or HTTP requests.
package input

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrEndOfInput reports that a source has nothing more to play. The session
// shuts down cleanly when ingestion returns it.
var ErrEndOfInput = errors.New("input: end of input")

// DefaultDuration is used when an event does not carry its own length.
const DefaultDuration = 1500 * time.Millisecond

// MaxFreq is the highest pitch a source accepts. The instrument still
// checks each event against the negotiated rate.
const MaxFreq = 24000.0

// validFreq reports whether f is a finite pitch in (0, MaxFreq]. NaN fails
// both comparisons.
func validFreq(f float64) bool { return f > 0 && f <= MaxFreq }

// Event asks for one note.
type Event struct {
	Freq     float64       // Hz
	Duration time.Duration // zero means DefaultDuration
	Velocity float64       // amplitude scale in [0, 1]; zero means full
	Label    string        // for logs
}

func (e Event) String() string {
	if e.Label != "" {
		return fmt.Sprintf("%s (%.2f Hz, %v)", e.Label, e.Freq, e.Length())
	}
	return fmt.Sprintf("%.2f Hz, %v", e.Freq, e.Length())
}

// Length returns the event duration with the default applied.
func (e Event) Length() time.Duration {
	if e.Duration <= 0 {
		return DefaultDuration
	}
	return e.Duration
}

// Level returns the velocity with the default applied.
func (e Event) Level() float64 {
	if e.Velocity <= 0 {
		return 1
	}
	if e.Velocity > 1 {
		return 1
	}
	return e.Velocity
}

// Source feeds events to emit until its input ends or ctx is cancelled.
// A source that runs out returns ErrEndOfInput. An error from emit stops the
// source and is returned unchanged.
type Source interface {
	Run(ctx context.Context, emit func(Event) error) error
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, emit func(Event) error) error

// Run implements Source.
func (f SourceFunc) Run(ctx context.Context, emit func(Event) error) error {
	return f(ctx, emit)
}

// Merge runs sources side by side. The first source to return ends the
// others, and its result is returned. emit may be called from several
// goroutines at once.
func Merge(sources ...Source) Source {
	if len(sources) == 1 {
		return sources[0]
	}
	return SourceFunc(func(ctx context.Context, emit func(Event) error) error {
		g, gctx := errgroup.WithContext(ctx)
		ctx, cancel := context.WithCancelCause(gctx)
		defer cancel(nil)
		for _, src := range sources {
			g.Go(func() error {
				err := src.Run(ctx, emit)
				if err == nil {
					err = ErrEndOfInput
				}
				cancel(err)
				return err
			})
		}
		g.Wait()
		return context.Cause(ctx)
	})
}
