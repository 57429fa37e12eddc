package audio

import "errors"

var (
	// ErrNegotiation reports that the device refused the requested
	// parameters. No audio is produced.
	ErrNegotiation = errors.New("audio: parameter negotiation failed")

	// ErrUnderrun reports that the device buffer ran dry before the next
	// period arrived. The writer recovers and continues.
	ErrUnderrun = errors.New("audio: buffer underrun")

	// ErrSuspended reports that the system paused the device. The writer
	// recovers and continues.
	ErrSuspended = errors.New("audio: device suspended")

	// ErrDeviceFatal wraps any device failure that ends the session.
	ErrDeviceFatal = errors.New("audio: fatal device error")

	// ErrChannelClosed reports that the period channel closed while the
	// session was still running.
	ErrChannelClosed = errors.New("audio: period channel closed")
)

// Recoverable reports whether err is a device condition the writer can
// recover from.
func Recoverable(err error) bool {
	return errors.Is(err, ErrUnderrun) || errors.Is(err, ErrSuspended)
}
