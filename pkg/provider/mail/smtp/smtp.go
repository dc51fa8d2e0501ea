// Package smtp implements the mail.Sender interface over SMTP with optional
// PLAIN authentication.
package smtp

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/brainybay/assistant/pkg/provider/mail"
)

var _ mail.Sender = (*Sender)(nil)

// Config holds the SMTP server coordinates and sender identity.
type Config struct {
	// Host is the SMTP server hostname.
	Host string

	// Port is the SMTP server port (typically 587).
	Port int

	// From is the envelope sender and From header address.
	From string

	// Username and Password enable PLAIN auth when both are set.
	Username string
	Password string
}

// Sender implements mail.Sender.
type Sender struct {
	cfg Config

	// send is stubbed in tests; it defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a Sender with the given configuration.
func New(cfg Config) (*Sender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp: host must not be empty")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp: from address must not be empty")
	}
	return &Sender{cfg: cfg, send: smtp.SendMail}, nil
}

// Send implements mail.Sender. The context deadline bounds the whole
// delivery; net/smtp has no context support, so cancellation is checked
// before dialing and the call itself runs in a goroutine.
func (s *Sender) Send(ctx context.Context, msg mail.Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("smtp: message has no recipients")
	}

	var auth smtp.Auth
	if s.cfg.Username != "" && s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	payload := s.encode(msg)

	done := make(chan error, 1)
	go func() {
		done <- s.send(addr, auth, s.cfg.From, msg.To, payload)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp: send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp: send: %w", ctx.Err())
	}
}

// encode renders the RFC 5322 message bytes.
func (s *Sender) encode(msg mail.Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
