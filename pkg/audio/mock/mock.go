// Package mock provides test doubles for the audio package interfaces.
//
// Capture feeds scripted microphone frames; Output is a playback device with
// a manually advanced clock so tests can verify scheduling decisions without
// real time passing.
//
// Example:
//
//	out := mock.NewOutput(24000)
//	cap := &mock.Capture{FramesCh: make(chan audio.Frame, 8)}
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/brainybay/assistant/pkg/audio"
)

// Capture is a mock implementation of audio.CaptureDevice.
type Capture struct {
	mu sync.Mutex

	// FramesCh is the channel returned by Start. Callers own this channel and
	// should close it to simulate the device stopping on its own.
	FramesCh chan audio.Frame

	// StartErr, if non-nil, is returned by Start (simulating a denied
	// microphone permission).
	StartErr error

	// StartCalls is the number of times Start was called.
	StartCalls int

	// StopCalls is the number of times Stop was called.
	StopCalls int
}

// Start records the call and returns FramesCh, StartErr.
func (c *Capture) Start(_ context.Context) (<-chan audio.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StartCalls++
	if c.StartErr != nil {
		return nil, c.StartErr
	}
	return c.FramesCh, nil
}

// Stop records the call.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StopCalls++
	return nil
}

// Counts returns (StartCalls, StopCalls). Thread-safe.
func (c *Capture) Counts() (starts, stops int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.StartCalls, c.StopCalls
}

var _ audio.CaptureDevice = (*Capture)(nil)

// PlaySource is a mock audio.Source recording how it was scheduled.
type PlaySource struct {
	// Samples is the PCM data passed to Play.
	Samples []float32

	// At is the clock time the chunk was scheduled for.
	At time.Duration

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// Stop marks the source stopped and closes Done. Idempotent.
func (s *PlaySource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.done)
}

// Done returns the completion channel.
func (s *PlaySource) Done() <-chan struct{} { return s.done }

// Finish simulates natural playback completion. Idempotent with Stop.
func (s *PlaySource) Finish() { s.Stop() }

// Stopped reports whether Stop or Finish was called.
func (s *PlaySource) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

var _ audio.Source = (*PlaySource)(nil)

// Output is a mock implementation of audio.Output with a manual clock.
type Output struct {
	mu sync.Mutex

	rate int
	now  time.Duration

	// Plays records every scheduled source in order.
	Plays []*PlaySource

	// CloseCount is the number of times Close was called.
	CloseCount int
}

// NewOutput creates a mock Output at the given sample rate with the clock
// at zero.
func NewOutput(rate int) *Output {
	return &Output{rate: rate}
}

// Now returns the current manual clock value.
func (o *Output) Now() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now
}

// SampleRate returns the configured rate.
func (o *Output) SampleRate() int { return o.rate }

// Advance moves the manual clock forward by d.
func (o *Output) Advance(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.now += d
}

// Play records the scheduled chunk and returns its source handle.
func (o *Output) Play(samples []float32, at time.Duration) audio.Source {
	o.mu.Lock()
	defer o.mu.Unlock()
	cp := make([]float32, len(samples))
	copy(cp, samples)
	src := &PlaySource{Samples: cp, At: at, done: make(chan struct{})}
	o.Plays = append(o.Plays, src)
	return src
}

// Close records the call.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.CloseCount++
	return nil
}

// Scheduled returns a snapshot of recorded sources. Thread-safe.
func (o *Output) Scheduled() []*PlaySource {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*PlaySource, len(o.Plays))
	copy(out, o.Plays)
	return out
}

var _ audio.Output = (*Output)(nil)
