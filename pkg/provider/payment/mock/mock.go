// Package mock provides a test double for the payment.Provider interface.
//
// Provider returns canned acknowledgments and scripted query results, so
// tests can walk a payment through pending → succeeded (or failed) without a
// live gateway. It also backs the assistant's demo mode, where prompts
// "succeed" after a fixed number of polls.
package mock

import (
	"context"
	"sync"

	"github.com/brainybay/assistant/pkg/provider/payment"
)

// RequestCall records a single invocation of RequestPayment.
type RequestCall struct {
	// Ctx is the context passed to RequestPayment.
	Ctx context.Context
	// Req is the Request passed to RequestPayment.
	Req payment.Request
}

// QueryCall records a single invocation of QueryPayment.
type QueryCall struct {
	// CheckoutRequestID is the ID passed to QueryPayment.
	CheckoutRequestID string
}

// Provider is a mock implementation of payment.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Ack is returned by RequestPayment. Nil yields a default acknowledgment
	// with CheckoutRequestID "ws_CO_TEST".
	Ack *payment.Acknowledgment

	// RequestErr, if non-nil, is returned by RequestPayment.
	RequestErr error

	// QueryResults is consumed one entry per QueryPayment call. After the
	// last entry, the final one repeats. Empty means StatePending forever.
	QueryResults []*payment.Result

	// QueryErr, if non-nil, is returned by QueryPayment.
	QueryErr error

	// --- Call records (read after test) ---

	// RequestCalls records every invocation of RequestPayment in order.
	RequestCalls []RequestCall

	// QueryCalls records every invocation of QueryPayment in order.
	QueryCalls []QueryCall

	queryIndex int
}

// RequestPayment records the call and returns Ack, RequestErr.
func (p *Provider) RequestPayment(ctx context.Context, req payment.Request) (*payment.Acknowledgment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RequestCalls = append(p.RequestCalls, RequestCall{Ctx: ctx, Req: req})
	if p.RequestErr != nil {
		return nil, p.RequestErr
	}
	if p.Ack != nil {
		return p.Ack, nil
	}
	return &payment.Acknowledgment{
		MerchantRequestID: "mr_TEST",
		CheckoutRequestID: "ws_CO_TEST",
		Description:       "Success. Request accepted for processing",
	}, nil
}

// QueryPayment records the call and returns the next scripted result.
func (p *Provider) QueryPayment(_ context.Context, checkoutRequestID string) (*payment.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.QueryCalls = append(p.QueryCalls, QueryCall{CheckoutRequestID: checkoutRequestID})
	if p.QueryErr != nil {
		return nil, p.QueryErr
	}
	if len(p.QueryResults) == 0 {
		return &payment.Result{State: payment.StatePending}, nil
	}
	res := p.QueryResults[p.queryIndex]
	if p.queryIndex < len(p.QueryResults)-1 {
		p.queryIndex++
	}
	return res, nil
}

// Reset clears all recorded calls and the query cursor. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RequestCalls = nil
	p.QueryCalls = nil
	p.queryIndex = 0
}

// Ensure Provider implements payment.Provider at compile time.
var _ payment.Provider = (*Provider)(nil)
