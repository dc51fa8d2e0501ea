// Package mail defines the Sender interface for outbound notification mail.
//
// The assistant sends one message per finalized application, addressed to the
// admissions team. The smtp subpackage provides the real implementation;
// tests use the mock subpackage.
package mail

import "context"

// Message is a single outbound mail.
type Message struct {
	// To lists the recipient addresses. Must be non-empty.
	To []string

	// Subject is the subject line.
	Subject string

	// Body is the plain-text body.
	Body string
}

// Sender delivers messages. Implementations must be safe for concurrent use.
type Sender interface {
	// Send delivers msg, returning when the message has been accepted by the
	// outbound server or an error occurred.
	Send(ctx context.Context, msg Message) error
}
