// Package synth implements the voices, filters and mixing used to render
// audio one frame at a time.
//
// Every voice is driven by the same two calls per frame: Generate for each
// output channel, then Tick. Samples are produced in float64 at the output
// format's full scale; narrowing to the device sample type happens later.
package synth

import "time"

// Ticks counts frames. A voice's tick count starts at 0 when it is created.
type Ticks uint64

// DurationToTicks returns floor(d * rate) for d in seconds. A zero rate is a
// caller error and yields 0.
func DurationToTicks(d time.Duration, rate uint32) Ticks {
	if d <= 0 || rate == 0 {
		return 0
	}
	secs := uint64(d / time.Second)
	rem := uint64(d % time.Second)
	return Ticks(secs*uint64(rate) + rem*uint64(rate)/uint64(time.Second))
}

// TicksToDuration converts a frame count back to wall-clock time.
func TicksToDuration(t Ticks, rate uint32) time.Duration {
	if rate == 0 {
		return 0
	}
	secs := uint64(t) / uint64(rate)
	rem := uint64(t) % uint64(rate)
	return time.Duration(secs)*time.Second + time.Duration(rem*uint64(time.Second)/uint64(rate))
}

// ticker tracks a voice's position against its duration.
type ticker struct {
	count    Ticks
	duration Ticks
}

func (t *ticker) tick() { t.count++ }

// complete reports whether the tick count has passed the duration: a voice of
// duration D plays ticks 0 through D inclusive.
func (t *ticker) complete() bool { return t.count > t.duration }
