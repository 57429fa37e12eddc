package audio

import (
	"github.com/satindergrewal/polysynth/internal/pcm"
)

// DefaultVoiceBuffer is the capacity of the channel carrying new voices from
// the ingestion stage to the generation stage.
const DefaultVoiceBuffer = 64

// Device is an output sound device. A Device is owned by the writer stage;
// none of its methods are called concurrently.
type Device[S pcm.Sample] interface {
	// Negotiate applies the request and returns the parameters the device
	// actually granted. It is called exactly once, before any write.
	Negotiate(req pcm.Request) (pcm.Params, error)
	// WritePeriod writes one interleaved period and returns the number of
	// frames written. It blocks while the device buffer is full. The slice
	// is reused by the caller after return and must not be retained.
	// Recoverable conditions are reported as ErrUnderrun or ErrSuspended.
	WritePeriod(period []S) (int, error)
	// Recover restores the device after ErrUnderrun or ErrSuspended.
	Recover(err error) error
	// Drain blocks until every written frame has played.
	Drain() error
	Close() error
}

// OpenFunc opens a device. It runs on the writer goroutine.
type OpenFunc[S pcm.Sample] func() (Device[S], error)
