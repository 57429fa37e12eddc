package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/satindergrewal/polysynth/internal/note"
)

const linesPrompt = "note> "

// Lines reads one note per line, "<note> [duration]", e.g. "4a" or
// "3eb 250ms". A bare number as duration is taken as seconds. "q" or "quit"
// ends the input.
type Lines struct {
	In     io.Reader
	Prompt io.Writer // nil disables the prompt

	// Duration applies to lines without one; zero means DefaultDuration.
	Duration time.Duration
	// QuitOnParseError stops the source at the first bad line instead of
	// logging and skipping it.
	QuitOnParseError bool
}

// Stdin reads from the process's standard input, prompting on stderr only
// when stdin is a terminal.
func Stdin() *Lines {
	l := &Lines{In: os.Stdin}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		l.Prompt = os.Stderr
	}
	return l
}

// Run implements Source.
func (l *Lines) Run(ctx context.Context, emit func(Event) error) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		sc := bufio.NewScanner(l.In)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		l.prompt()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("input/lines: read: %w", err)
			}
			return ErrEndOfInput
		case line := <-lines:
			ev, ok, err := l.parse(line)
			if errors.Is(err, ErrEndOfInput) {
				return err
			}
			if err != nil {
				if l.QuitOnParseError {
					return err
				}
				slog.Warn("skipping input line", "line", line, "error", err)
				continue
			}
			if !ok {
				continue
			}
			if err := emit(ev); err != nil {
				return err
			}
		}
	}
}

func (l *Lines) prompt() {
	if l.Prompt != nil {
		fmt.Fprint(l.Prompt, linesPrompt)
	}
}

// parse returns ok=false for blank lines and ErrEndOfInput for the quit
// command.
func (l *Lines) parse(line string) (Event, bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, false, nil
	}
	switch strings.ToLower(fields[0]) {
	case "q", "quit":
		return Event{}, false, ErrEndOfInput
	}
	if len(fields) > 2 {
		return Event{}, false, fmt.Errorf("input/lines: %q: want <note> [duration]", line)
	}
	n, err := note.Parse(fields[0])
	if err != nil {
		return Event{}, false, err
	}
	ev := Event{Freq: n.Freq(), Duration: l.Duration, Label: n.String()}
	if len(fields) == 2 {
		d, err := ParseDuration(fields[1])
		if err != nil {
			return Event{}, false, fmt.Errorf("input/lines: %q: %w", line, err)
		}
		ev.Duration = d
	}
	return ev, true, nil
}

// ParseDuration accepts Go duration syntax or a plain number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("duration %q must be positive", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}
