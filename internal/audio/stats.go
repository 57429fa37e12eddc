package audio

import "sync/atomic"

// Stats counts pipeline activity. All fields are updated atomically by the
// stages and may be read at any time.
type Stats struct {
	PeriodsGenerated atomic.Uint64
	PeriodsWritten   atomic.Uint64
	FramesWritten    atomic.Uint64
	Underruns        atomic.Uint64
	Recoveries       atomic.Uint64
	VoicesAccepted   atomic.Uint64
	EventsRejected   atomic.Uint64
	ActiveVoices     atomic.Int64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	PeriodsGenerated uint64 `json:"periods_generated"`
	PeriodsWritten   uint64 `json:"periods_written"`
	FramesWritten    uint64 `json:"frames_written"`
	Underruns        uint64 `json:"underruns"`
	Recoveries       uint64 `json:"recoveries"`
	VoicesAccepted   uint64 `json:"voices_accepted"`
	EventsRejected   uint64 `json:"events_rejected"`
	ActiveVoices     int64  `json:"active_voices"`
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		PeriodsGenerated: s.PeriodsGenerated.Load(),
		PeriodsWritten:   s.PeriodsWritten.Load(),
		FramesWritten:    s.FramesWritten.Load(),
		Underruns:        s.Underruns.Load(),
		Recoveries:       s.Recoveries.Load(),
		VoicesAccepted:   s.VoicesAccepted.Load(),
		EventsRejected:   s.EventsRejected.Load(),
		ActiveVoices:     s.ActiveVoices.Load(),
	}
}
