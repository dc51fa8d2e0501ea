// Package voice defines the Provider interface for real-time voice backends.
//
// A voice provider wraps a bidirectional streaming speech service that accepts
// raw microphone audio and returns synthesised speech in a single, stateful
// session. The central abstraction is Session: a long-lived connection that
// carries audio both ways and surfaces everything the server says as typed
// ServerEvent values on a single ordered channel.
//
// All implementations must be safe for concurrent use.
package voice

import (
	"context"
	"time"
)

// EventType discriminates the variants of a ServerEvent.
type EventType int

const (
	// EventAudio carries a chunk of synthesised speech in Audio.
	EventAudio EventType = iota + 1

	// EventInterrupted signals that the server detected the user speaking over
	// the model and has abandoned the current response. Any audio already
	// delivered for the interrupted turn should be discarded by the player.
	EventInterrupted

	// EventTurnComplete signals that the model finished its current response.
	EventTurnComplete

	// EventInputTranscript carries a recognition fragment of the user's
	// speech in Transcript.
	EventInputTranscript

	// EventOutputTranscript carries a text fragment of the model's spoken
	// response in Transcript.
	EventOutputTranscript
)

// ServerEvent is a single typed event from the voice backend. Exactly the
// fields implied by Type are set; the rest are zero.
type ServerEvent struct {
	// Type identifies the variant.
	Type EventType

	// Audio is raw little-endian 16-bit PCM at the session's output sample
	// rate. Set only for EventAudio.
	Audio []byte

	// Transcript is a text fragment. Set for EventInputTranscript and
	// EventOutputTranscript. Fragments accumulate within a turn; a turn
	// boundary is marked by EventTurnComplete or EventInterrupted.
	Transcript string
}

// SessionConfig is the initial configuration for a new voice session.
type SessionConfig struct {
	// Instructions is the system-level prompt defining the assistant's
	// persona and behavioural constraints.
	Instructions string

	// Voice selects the synthesised voice by provider-specific name.
	// Empty means the provider default.
	Voice string

	// InputSampleRate is the rate of the PCM chunks the caller will send.
	// Zero means the provider default.
	InputSampleRate int

	// OutputSampleRate is the rate of the PCM the provider will emit.
	// Zero means the provider default.
	OutputSampleRate int
}

// Capabilities describes static properties of a voice provider. The values
// are assumed constant for the lifetime of the Provider instance.
type Capabilities struct {
	// Voices lists the synthesised voice names available for this provider.
	Voices []string

	// InputSampleRate is the PCM rate the provider expects from the caller.
	InputSampleRate int

	// OutputSampleRate is the PCM rate of the provider's synthesised audio.
	OutputSampleRate int

	// MaxSessionDuration is the hard upper bound on session lifetime imposed
	// by the provider. Zero means no documented limit.
	MaxSessionDuration time.Duration
}

// Session represents an open voice session. It is an interface so that test
// code can supply mock implementations without a live connection.
//
// The session is the hot path of the voice pipeline; every method must return
// quickly. Callers must call Close when the session is no longer needed.
type Session interface {
	// SendAudio delivers a raw PCM chunk (little-endian 16-bit mono at the
	// configured input rate) to the provider. Returns an error if the session
	// is closed or the chunk cannot be written.
	SendAudio(chunk []byte) error

	// Events returns a read-only channel emitting ServerEvents in the order
	// the server produced them. The channel is closed when the session ends;
	// check Err afterwards to distinguish a clean shutdown from a failure.
	// Consumers must drain promptly to avoid stalling the receive loop.
	Events() <-chan ServerEvent

	// Err returns the error that ended the session prematurely, or nil if it
	// ended cleanly. Valid after the Events channel is closed.
	Err() error

	// Close terminates the session and releases all resources. Calling Close
	// more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any real-time voice backend.
type Provider interface {
	// Connect establishes a new session with the given configuration. The
	// returned Session is ready to accept audio immediately. The caller owns
	// the Session and is responsible for calling Close.
	Connect(ctx context.Context, cfg SessionConfig) (Session, error)

	// Capabilities returns static metadata about the provider's underlying
	// model.
	Capabilities() Capabilities
}
