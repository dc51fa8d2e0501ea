// Package payment defines the Provider interface for mobile money backends.
//
// A payment provider initiates an STK push — a prompt on the payer's phone
// asking them to authorise a charge with their PIN — and reports the outcome.
// The canonical implementation talks to Safaricom's Daraja M-PESA API; tests
// and demo mode use the mock subpackage.
//
// All implementations must be safe for concurrent use.
package payment

import (
	"context"
	"fmt"
	"strings"
)

// State is the lifecycle state of an initiated payment.
type State int

const (
	// StatePending means the payer has not yet responded to the prompt.
	StatePending State = iota + 1

	// StateSucceeded means the payer authorised the charge.
	StateSucceeded

	// StateFailed means the payer declined, the prompt timed out, or the
	// charge was rejected.
	StateFailed
)

// Request describes a charge to initiate.
type Request struct {
	// Amount is the charge in whole Kenyan shillings.
	Amount int

	// PhoneNumber is the payer's MSISDN in international format
	// (2547XXXXXXXX). Use NormalizeMSISDN to convert user input.
	PhoneNumber string

	// AccountReference identifies what is being paid for ("BIS-JANE").
	// Shown on the payer's statement.
	AccountReference string

	// Description is a short free-text note for the prompt.
	Description string
}

// Acknowledgment is the backend's receipt for an initiated payment. It does
// not mean the payer has paid — poll QueryPayment for the outcome.
type Acknowledgment struct {
	// MerchantRequestID is the backend's identifier for the merchant side of
	// the transaction.
	MerchantRequestID string

	// CheckoutRequestID identifies the STK prompt; pass it to QueryPayment.
	CheckoutRequestID string

	// Description is the backend's human-readable acceptance message.
	Description string
}

// Result is the outcome of a payment, as reported by QueryPayment.
type Result struct {
	// State is the payment's current lifecycle state.
	State State

	// Description is the backend's human-readable outcome message.
	Description string

	// ReceiptNumber is the transaction reference on success ("SAB12XY9QK"),
	// empty otherwise.
	ReceiptNumber string
}

// Provider is the abstraction over any mobile money backend.
type Provider interface {
	// RequestPayment initiates an STK push for the given charge. A nil error
	// means the prompt was delivered, not that the payer has paid.
	RequestPayment(ctx context.Context, req Request) (*Acknowledgment, error)

	// QueryPayment reports the current outcome of an initiated payment.
	// While the payer has not yet responded it returns a Result with
	// StatePending and a nil error.
	QueryPayment(ctx context.Context, checkoutRequestID string) (*Result, error)
}

// NormalizeMSISDN converts user-entered Kenyan phone numbers to international
// format: non-digits are stripped and a leading 0 becomes 254, so both
// "0712 345 678" and "254712345678" normalize to "254712345678". Returns an
// error when the result is not a 12-digit number starting with 254.
func NormalizeMSISDN(input string) (string, error) {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if strings.HasPrefix(digits, "0") {
		digits = "254" + digits[1:]
	}

	if len(digits) != 12 || !strings.HasPrefix(digits, "254") {
		return "", fmt.Errorf("payment: invalid Kenyan phone number %q", input)
	}
	return digits, nil
}
