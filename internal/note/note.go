// Package note parses note names such as "4a" or "3eb" into piano keys and
// frequencies.
package note

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrParse reports a token that is not a playable note.
var ErrParse = errors.New("note: parse error")

const (
	keysPerOctave  = 12
	startKeyOffset = 8
	firstKey       = 1
	lastKey        = 88
	concertKey     = 49 // A4
	concertPitch   = 440.0
)

var offsets = map[byte]int{
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

// Note is a key on an 88-key piano keyboard.
type Note struct {
	Octave int
	Letter byte // 'a' through 'g'
	Shift  int  // -1 flat, 0 natural, +1 sharp
	Key    int  // 1 (A0) through 88 (C8)
}

// Parse reads an octave digit, a note letter and an optional accidental
// ("#" or "s" for sharp, "b" for flat). Case and surrounding space are
// ignored.
func Parse(token string) (Note, error) {
	s := strings.ToLower(strings.TrimSpace(token))
	if len(s) < 2 || len(s) > 3 {
		return Note{}, fmt.Errorf("%w: %q", ErrParse, token)
	}
	if s[0] < '0' || s[0] > '8' {
		return Note{}, fmt.Errorf("%w: %q: invalid octave", ErrParse, token)
	}
	offset, ok := offsets[s[1]]
	if !ok {
		return Note{}, fmt.Errorf("%w: %q: invalid note letter", ErrParse, token)
	}
	n := Note{Octave: int(s[0] - '0'), Letter: s[1]}
	if len(s) == 3 {
		switch s[2] {
		case '#', 's':
			n.Shift = 1
		case 'b':
			n.Shift = -1
		default:
			return Note{}, fmt.Errorf("%w: %q: invalid accidental", ErrParse, token)
		}
	}
	n.Key = n.Octave*keysPerOctave + offset + n.Shift - startKeyOffset
	if n.Key < firstKey || n.Key > lastKey {
		return Note{}, fmt.Errorf("%w: %q: key %d outside the keyboard", ErrParse, token, n.Key)
	}
	return n, nil
}

// Freq returns the equal-tempered frequency in Hz.
func (n Note) Freq() float64 {
	return KeyFreq(n.Key)
}

func (n Note) String() string {
	s := fmt.Sprintf("%c", n.Letter-'a'+'A')
	switch n.Shift {
	case 1:
		s += "#"
	case -1:
		s += "b"
	}
	return fmt.Sprintf("%s%d", s, n.Octave)
}

// KeyFreq returns the frequency of piano key k (A4 = 49 = 440 Hz).
func KeyFreq(k int) float64 {
	return concertPitch * math.Pow(2, float64(k-concertKey)/keysPerOctave)
}

// MIDIFreq returns the frequency of MIDI note k (A4 = 69 = 440 Hz).
func MIDIFreq(k uint8) float64 {
	return concertPitch * math.Pow(2, (float64(k)-69)/keysPerOctave)
}
