// Package mock provides test doubles for the voice.Provider and voice.Session
// interfaces.
//
// Use Provider to verify session configuration without a live connection, and
// Session to feed scripted ServerEvents and record the audio chunks the code
// under test sends.
//
// Example:
//
//	sess := mock.NewSession()
//	p := &mock.Provider{Session: sess}
//	sess.EventsCh <- voice.ServerEvent{Type: voice.EventTurnComplete}
package mock

import (
	"context"
	"sync"

	"github.com/brainybay/assistant/pkg/provider/voice"
)

// Session is a mock implementation of voice.Session.
type Session struct {
	mu sync.Mutex

	// EventsCh is the channel returned by Events. Tests send scripted events
	// on it and close it to end the session.
	EventsCh chan voice.ServerEvent

	// SendAudioErr, if non-nil, is returned by SendAudio.
	SendAudioErr error

	// ErrVal is returned by Err.
	ErrVal error

	// SentChunks records every chunk passed to SendAudio in order.
	SentChunks [][]byte

	// CloseCount is the number of times Close was called.
	CloseCount int
}

// NewSession creates a Session with a buffered events channel.
func NewSession() *Session {
	return &Session{EventsCh: make(chan voice.ServerEvent, 64)}
}

// SendAudio records the chunk and returns SendAudioErr.
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.SentChunks = append(s.SentChunks, cp)
	return s.SendAudioErr
}

// Events returns EventsCh.
func (s *Session) Events() <-chan voice.ServerEvent { return s.EventsCh }

// Err returns ErrVal.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ErrVal
}

// Close records the call.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCount++
	return nil
}

// Sent returns a snapshot of recorded chunks. Thread-safe.
func (s *Session) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.SentChunks))
	copy(out, s.SentChunks)
	return out
}

// Closes returns the number of Close calls. Thread-safe.
func (s *Session) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CloseCount
}

var _ voice.Session = (*Session)(nil)

// ConnectCall records a single invocation of Connect.
type ConnectCall struct {
	// Ctx is the context passed to Connect.
	Ctx context.Context
	// Cfg is the SessionConfig passed to Connect.
	Cfg voice.SessionConfig
}

// Provider is a mock implementation of voice.Provider.
type Provider struct {
	mu sync.Mutex

	// Session is returned by Connect. Usually a *Session from NewSession.
	Session voice.Session

	// ConnectErr, if non-nil, is returned by Connect instead of Session.
	ConnectErr error

	// CapabilitiesVal is returned by Capabilities.
	CapabilitiesVal voice.Capabilities

	// ConnectCalls records every invocation of Connect in order.
	ConnectCalls []ConnectCall
}

// Connect records the call and returns Session, ConnectErr.
func (p *Provider) Connect(ctx context.Context, cfg voice.SessionConfig) (voice.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = append(p.ConnectCalls, ConnectCall{Ctx: ctx, Cfg: cfg})
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	return p.Session, nil
}

// Capabilities returns CapabilitiesVal.
func (p *Provider) Capabilities() voice.Capabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CapabilitiesVal
}

// Calls returns a snapshot of recorded Connect calls. Thread-safe.
func (p *Provider) Calls() []ConnectCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ConnectCall, len(p.ConnectCalls))
	copy(out, p.ConnectCalls)
	return out
}

var _ voice.Provider = (*Provider)(nil)
