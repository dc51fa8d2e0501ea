package audio

import "time"

// Source is a handle to one scheduled playback chunk. The voice session
// tracks every live Source so a barge-in can silence all of them at once.
type Source interface {
	// Stop halts playback immediately. Idempotent; stopping a finished source
	// is a no-op.
	Stop()

	// Done is closed when the source finishes playing or is stopped.
	Done() <-chan struct{}
}

// Output is the playback half of the audio pipeline: a clock plus a scheduler
// for decoded PCM chunks. The monotonic clock is what makes gapless
// concatenation work — the session schedules each chunk at
// max(cursor, Now()) and advances the cursor by the chunk's duration.
//
// An Output is exclusively owned by one voice session and must be fully
// released by Close on teardown.
type Output interface {
	// Now returns the current position of the playback clock.
	Now() time.Duration

	// SampleRate returns the output rate in Hz.
	SampleRate() int

	// Play schedules mono float32 samples to start at the given clock time.
	// A start time in the past plays immediately. The returned Source reports
	// natural completion via Done.
	Play(samples []float32, at time.Duration) Source

	// Close stops the clock and releases the playback device. Idempotent.
	Close() error
}
