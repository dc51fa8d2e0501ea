// Package mock provides a test double for the textgen.Provider interface.
//
// Use Provider in unit tests to verify that the assistant sends correct
// Requests and to feed controlled replies without a live model backend.
// All fields are safe to set before calling any method; mutating them during
// a concurrent call is the caller's responsibility.
//
// Example:
//
//	p := &mock.Provider{
//	    Response: &textgen.Response{Text: "Hello!"},
//	}
//	resp, err := p.Generate(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/brainybay/assistant/pkg/provider/textgen"
	"github.com/brainybay/assistant/pkg/types"
)

// GenerateCall records a single invocation of Generate.
type GenerateCall struct {
	// Ctx is the context passed to Generate.
	Ctx context.Context
	// Req is the Request passed to Generate.
	Req textgen.Request
}

// Provider is a mock implementation of textgen.Provider.
// Zero values for response fields cause methods to return zero values and
// nil errors. Set Err to inject failures.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Response is returned by Generate when Responses is empty. May be nil
	// (returns nil, nil).
	Response *textgen.Response

	// Responses, when non-empty, is consumed one entry per Generate call.
	// After the last entry, Response is used.
	Responses []*textgen.Response

	// Err, if non-nil, is returned as the error from Generate.
	Err error

	// GenerateFunc, if non-nil, replaces the canned behavior entirely. The
	// call is still recorded.
	GenerateFunc func(ctx context.Context, req textgen.Request) (*textgen.Response, error)

	// ModelCapabilities is returned by Capabilities.
	ModelCapabilities types.ModelCapabilities

	// --- Call records (read after test) ---

	// GenerateCalls records every invocation of Generate in order.
	GenerateCalls []GenerateCall

	// CapabilitiesCallCount is the number of times Capabilities was called.
	CapabilitiesCallCount int
}

// Generate records the call and returns the next canned response.
func (p *Provider) Generate(ctx context.Context, req textgen.Request) (*textgen.Response, error) {
	p.mu.Lock()
	p.GenerateCalls = append(p.GenerateCalls, GenerateCall{Ctx: ctx, Req: req})
	fn := p.GenerateFunc
	resp := p.Response
	if len(p.Responses) > 0 {
		resp = p.Responses[0]
		p.Responses = p.Responses[1:]
	}
	err := p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Capabilities records the call and returns ModelCapabilities.
func (p *Provider) Capabilities() types.ModelCapabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CapabilitiesCallCount++
	return p.ModelCapabilities
}

// Calls returns a snapshot of recorded Generate calls. Thread-safe.
func (p *Provider) Calls() []GenerateCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]GenerateCall, len(p.GenerateCalls))
	copy(out, p.GenerateCalls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GenerateCalls = nil
	p.CapabilitiesCallCount = 0
}

// Ensure Provider implements textgen.Provider at compile time.
var _ textgen.Provider = (*Provider)(nil)
