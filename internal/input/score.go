package input

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/satindergrewal/polysynth/internal/note"
)

// Score is a timed list of notes, as read from YAML:
//
//	name: scale
//	tempo: 120        # beats per minute, for notes given in beats
//	spacing: 1.01     # start-to-start gap as a multiple of note length
//	tail: 5s          # wait after the last note before ending
//	velocity: 0.5
//	notes:
//	  - note: 4a
//	    beats: 1
//	  - freq: 247.5
//	    duration: 2s
//	    rest: 100ms     # extra wait after this note
type Score struct {
	Name     string      `yaml:"name"`
	Tempo    float64     `yaml:"tempo"`
	Spacing  float64     `yaml:"spacing"`
	Tail     string      `yaml:"tail"`
	Velocity float64     `yaml:"velocity"`
	Notes    []ScoreNote `yaml:"notes"`
}

// ScoreNote is one entry of a Score. Either Note or Freq names the pitch;
// either Beats or Duration names the length.
type ScoreNote struct {
	Note     string  `yaml:"note"`
	Freq     float64 `yaml:"freq"`
	Beats    float64 `yaml:"beats"`
	Duration string  `yaml:"duration"`
	Velocity float64 `yaml:"velocity"`
	Rest     string  `yaml:"rest"`
}

// Demo values: the just-intonation major scale over A3, two seconds a
// note at roughly a fifth of full scale.
var demoRatios = []float64{1, 1.125, 1.25, 1.333, 1.5, 1.666, 1.875, 2.0}

const (
	demoRoot     = 220.0
	demoVelocity = 7000.0 / 32767
)

// DemoScore returns the built-in scale.
func DemoScore() *Score {
	s := &Score{
		Name:     "demo",
		Spacing:  1.01,
		Tail:     "5s",
		Velocity: demoVelocity,
	}
	for _, r := range demoRatios {
		s.Notes = append(s.Notes, ScoreNote{Freq: demoRoot * r, Duration: "2s"})
	}
	return s
}

// ParseScore decodes a YAML score.
func ParseScore(data []byte) (*Score, error) {
	var s Score
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("input/score: %w", err)
	}
	return &s, nil
}

// LoadScore reads a YAML score file.
func LoadScore(path string) (*Score, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("input/score: %w", err)
	}
	return ParseScore(data)
}

// Step is one scheduled note: emit Event, then wait Wait before the next.
type Step struct {
	Event Event
	Wait  time.Duration
}

// Sequence is a compiled score. It implements Source.
type Sequence struct {
	Name  string
	Steps []Step
	Tail  time.Duration

	wait func(context.Context, time.Duration) error
}

// Compile resolves pitches and lengths into a playable sequence.
func (s *Score) Compile() (*Sequence, error) {
	if len(s.Notes) == 0 {
		return nil, errors.New("input/score: no notes")
	}
	spacing := s.Spacing
	if spacing <= 0 {
		spacing = 1
	}
	seq := &Sequence{Name: s.Name}
	if s.Tail != "" {
		d, err := ParseDuration(s.Tail)
		if err != nil {
			return nil, fmt.Errorf("input/score: tail: %w", err)
		}
		seq.Tail = d
	}
	for i, n := range s.Notes {
		ev, err := s.event(n)
		if err != nil {
			return nil, fmt.Errorf("input/score: note %d: %w", i+1, err)
		}
		wait := time.Duration(math.Round(float64(ev.Length()) * spacing))
		if n.Rest != "" {
			rest, err := ParseDuration(n.Rest)
			if err != nil {
				return nil, fmt.Errorf("input/score: note %d: rest: %w", i+1, err)
			}
			wait += rest
		}
		seq.Steps = append(seq.Steps, Step{Event: ev, Wait: wait})
	}
	return seq, nil
}

func (s *Score) event(n ScoreNote) (Event, error) {
	ev := Event{Velocity: s.Velocity}
	if n.Velocity > 0 {
		ev.Velocity = n.Velocity
	}
	switch {
	case n.Note != "":
		parsed, err := note.Parse(n.Note)
		if err != nil {
			return Event{}, err
		}
		ev.Freq, ev.Label = parsed.Freq(), parsed.String()
	case n.Freq != 0:
		if !validFreq(n.Freq) {
			return Event{}, fmt.Errorf("freq %v outside 0-%g Hz", n.Freq, MaxFreq)
		}
		ev.Freq = n.Freq
	default:
		return Event{}, errors.New("needs a note or a positive freq")
	}
	switch {
	case n.Duration != "":
		d, err := ParseDuration(n.Duration)
		if err != nil {
			return Event{}, err
		}
		ev.Duration = d
	case n.Beats > 0:
		if s.Tempo <= 0 {
			return Event{}, errors.New("beats need a positive tempo")
		}
		ev.Duration = time.Duration(n.Beats * float64(time.Minute) / s.Tempo)
	}
	return ev, nil
}

// Length returns the time from the first note until the sequence ends.
func (q *Sequence) Length() time.Duration {
	total := q.Tail
	for _, st := range q.Steps {
		total += st.Wait
	}
	return total
}

// Run implements Source. It plays every step in order, waits out the tail
// and returns ErrEndOfInput.
func (q *Sequence) Run(ctx context.Context, emit func(Event) error) error {
	wait := q.wait
	if wait == nil {
		wait = sleep
	}
	for _, st := range q.Steps {
		if err := emit(st.Event); err != nil {
			return err
		}
		if err := wait(ctx, st.Wait); err != nil {
			return err
		}
	}
	if err := wait(ctx, q.Tail); err != nil {
		return err
	}
	return ErrEndOfInput
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
