// Package mock provides a test double for the mail.Sender interface.
package mock

import (
	"context"
	"sync"

	"github.com/brainybay/assistant/pkg/provider/mail"
)

// SendCall records a single invocation of Send.
type SendCall struct {
	// Ctx is the context passed to Send.
	Ctx context.Context
	// Msg is the Message passed to Send.
	Msg mail.Message
}

// Sender is a mock implementation of mail.Sender.
type Sender struct {
	mu sync.Mutex

	// Err, if non-nil, is returned by Send.
	Err error

	// SendCalls records every invocation of Send in order.
	SendCalls []SendCall
}

// Send records the call and returns Err.
func (s *Sender) Send(ctx context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SendCalls = append(s.SendCalls, SendCall{Ctx: ctx, Msg: msg})
	return s.Err
}

// Calls returns a snapshot of recorded Send calls. Thread-safe.
func (s *Sender) Calls() []SendCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SendCall, len(s.SendCalls))
	copy(out, s.SendCalls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (s *Sender) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SendCalls = nil
}

// Ensure Sender implements mail.Sender at compile time.
var _ mail.Sender = (*Sender)(nil)
