// Command polysynth is a real-time polyphonic synthesizer. Notes typed on a
// terminal, played on a MIDI keyboard, read from a score or posted over HTTP
// are rendered to a sound device or streamed to browsers.
//
// Usage:
//
//	polysynth [flags] <command>
//
// Commands:
//
//	play     - Start a session (default input: note names on stdin)
//	note     - Show key numbers and frequencies of note names
//	info     - List output backends, MIDI ports and instrument kinds
//	version  - Show version information
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
