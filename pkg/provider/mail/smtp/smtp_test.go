package smtp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	netsmtp "net/smtp"

	"github.com/brainybay/assistant/pkg/provider/mail"
)

type sendRecord struct {
	addr string
	auth netsmtp.Auth
	from string
	to   []string
	msg  []byte
}

func newTestSender(t *testing.T, sendErr error) (*Sender, *sendRecord) {
	t.Helper()
	s, err := New(Config{
		Host:     "mail.example.com",
		Port:     587,
		From:     "portal@brainybayschools.com",
		Username: "portal",
		Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := &sendRecord{}
	s.send = func(addr string, a netsmtp.Auth, from string, to []string, msg []byte) error {
		rec.addr = addr
		rec.auth = a
		rec.from = from
		rec.to = append([]string(nil), to...)
		rec.msg = append([]byte(nil), msg...)
		return sendErr
	}
	return s, rec
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{From: "a@b.c"}); err == nil {
		t.Error("expected error for missing host")
	}
	if _, err := New(Config{Host: "mail.example.com"}); err == nil {
		t.Error("expected error for missing from address")
	}
}

func TestNew_DefaultPort(t *testing.T) {
	t.Parallel()
	s, err := New(Config{Host: "mail.example.com", From: "a@b.c"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.cfg.Port != 587 {
		t.Errorf("Port = %d; want 587", s.cfg.Port)
	}
}

func TestSend(t *testing.T) {
	t.Parallel()
	s, rec := newTestSender(t, nil)

	msg := mail.Message{
		To:      []string{"admissions@brainybayschools.com", "admin@brainybayschools.com"},
		Subject: "New Student Application: Jane Doe (Year 7)",
		Body:    "Dear Admissions Team,\n\nA new application has been submitted.",
	}
	if err := s.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if rec.addr != "mail.example.com:587" {
		t.Errorf("addr = %q", rec.addr)
	}
	if rec.from != "portal@brainybayschools.com" {
		t.Errorf("from = %q", rec.from)
	}
	if len(rec.to) != 2 {
		t.Fatalf("to = %v", rec.to)
	}
	if rec.auth == nil {
		t.Error("expected PLAIN auth when credentials are configured")
	}

	raw := string(rec.msg)
	if !strings.Contains(raw, "Subject: New Student Application: Jane Doe (Year 7)\r\n") {
		t.Errorf("missing subject header in:\n%s", raw)
	}
	if !strings.Contains(raw, "To: admissions@brainybayschools.com, admin@brainybayschools.com\r\n") {
		t.Errorf("missing to header in:\n%s", raw)
	}
	if !strings.Contains(raw, "\r\n\r\nDear Admissions Team,\r\n") {
		t.Errorf("body not CRLF-normalized in:\n%s", raw)
	}
}

func TestSend_NoRecipients(t *testing.T) {
	t.Parallel()
	s, _ := newTestSender(t, nil)
	if err := s.Send(context.Background(), mail.Message{Subject: "x"}); err == nil {
		t.Fatal("expected error for empty recipient list")
	}
}

func TestSend_NoAuthWithoutCredentials(t *testing.T) {
	t.Parallel()
	s, err := New(Config{Host: "mail.example.com", From: "a@b.c"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var gotAuth netsmtp.Auth = netsmtp.PlainAuth("", "x", "y", "z")
	s.send = func(_ string, a netsmtp.Auth, _ string, _ []string, _ []byte) error {
		gotAuth = a
		return nil
	}
	if err := s.Send(context.Background(), mail.Message{To: []string{"a@b.c"}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAuth != nil {
		t.Error("expected nil auth without credentials")
	}
}

func TestSend_Error(t *testing.T) {
	t.Parallel()
	wantErr := errors.New("connection refused")
	s, _ := newTestSender(t, wantErr)
	err := s.Send(context.Background(), mail.Message{To: []string{"a@b.c"}})
	if err == nil || !errors.Is(err, wantErr) {
		t.Fatalf("Send error = %v; want wrapped %v", err, wantErr)
	}
}

func TestSend_ContextCancelled(t *testing.T) {
	t.Parallel()
	s, _ := newTestSender(t, nil)
	block := make(chan struct{})
	s.send = func(string, netsmtp.Auth, string, []string, []byte) error {
		<-block
		return nil
	}
	t.Cleanup(func() { close(block) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Send(ctx, mail.Message{To: []string{"a@b.c"}})
	if err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Send error = %v; want deadline exceeded", err)
	}
}
