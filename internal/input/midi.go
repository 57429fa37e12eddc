package input

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // registers the rtmidi driver

	"github.com/satindergrewal/polysynth/internal/note"
)

const maxVelocity = 127

// MIDI plays note-on messages from a MIDI input port. Velocity scales the
// amplitude. Note-off is ignored: every note lasts Duration.
type MIDI struct {
	// Port is matched case-insensitively against input port names; empty
	// picks the first port.
	Port     string
	Duration time.Duration
	// Channel restricts input to one MIDI channel, 1 through 16; 0 accepts
	// every channel.
	Channel int
}

// InPorts lists the names of the available MIDI input ports.
func InPorts() []string {
	var names []string
	for _, in := range gomidi.GetInPorts() {
		names = append(names, in.String())
	}
	return names
}

// Run implements Source. It returns when ctx is cancelled or emit fails.
func (m *MIDI) Run(ctx context.Context, emit func(Event) error) error {
	in, err := m.findPort()
	if err != nil {
		return err
	}

	events := make(chan Event, 32)
	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, _ int32) {
		ev, ok := m.event(msg)
		if !ok {
			return
		}
		select {
		case events <- ev:
		default:
			slog.Warn("midi: dropping note, ingestion is behind", "note", ev.Label)
		}
	})
	if err != nil {
		return fmt.Errorf("input/midi: listen on %s: %w", in, err)
	}
	defer stop()
	slog.Info("midi: listening", "port", in.String())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if err := emit(ev); err != nil {
				return err
			}
		}
	}
}

func (m *MIDI) findPort() (drivers.In, error) {
	ports := gomidi.GetInPorts()
	if len(ports) == 0 {
		return nil, fmt.Errorf("input/midi: no input ports")
	}
	if m.Port == "" {
		return ports[0], nil
	}
	want := strings.ToLower(m.Port)
	for _, in := range ports {
		if strings.Contains(strings.ToLower(in.String()), want) {
			return in, nil
		}
	}
	return nil, fmt.Errorf("input/midi: no input port matching %q", m.Port)
}

// event converts a note-on with non-zero velocity.
func (m *MIDI) event(msg gomidi.Message) (Event, bool) {
	var channel, key, velocity uint8
	if !msg.GetNoteOn(&channel, &key, &velocity) || velocity == 0 {
		return Event{}, false
	}
	if m.Channel > 0 && int(channel)+1 != m.Channel {
		return Event{}, false
	}
	return Event{
		Freq:     note.MIDIFreq(key),
		Duration: m.Duration,
		Velocity: float64(velocity) / maxVelocity,
		Label:    fmt.Sprintf("midi %d", key),
	}, true
}
