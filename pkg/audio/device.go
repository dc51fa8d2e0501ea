package audio

import "context"

// Frame is one chunk of captured microphone audio. Samples are mono float32
// in [-1, 1] at the device's native rate; the session resamples to the
// upstream contract rate before quantizing.
type Frame struct {
	// Samples is the mono sample data.
	Samples []float32

	// SampleRate is the rate the device captured at, in Hz.
	SampleRate int
}

// CaptureDevice is the microphone input capability. Implementations wrap a
// platform audio stack; tests use the mock subpackage.
//
// The device is exclusively owned by one voice session at a time: the session
// calls Start when the session opens and Stop on teardown, and must not leak
// the handle across start/stop cycles.
type CaptureDevice interface {
	// Start begins capture and returns the frame stream. The channel is closed
	// when capture stops, either via Stop or because the device failed.
	// Returns an error when the device cannot be acquired (e.g. permission
	// denied); no resources are held after a failed Start.
	Start(ctx context.Context) (<-chan Frame, error)

	// Stop releases the device. Idempotent; safe to call when never started.
	Stop() error
}
