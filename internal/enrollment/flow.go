package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brainybay/assistant/internal/observe"
	"github.com/brainybay/assistant/pkg/provider/mail"
	"github.com/brainybay/assistant/pkg/provider/payment"
)

// Status is the lifecycle state of one application payment attempt.
type Status string

const (
	// StatusIdle means no payment has been attempted (or the last failure has
	// reset). A new attempt may be submitted.
	StatusIdle Status = "idle"

	// StatusProcessing means the charge request is being sent to the gateway.
	// Re-submission is rejected.
	StatusProcessing Status = "processing"

	// StatusAwaitingConfirmation means the gateway accepted the request and
	// the payer is authorising on their phone. Completion cannot be observed
	// locally; ConfirmPayment advances the attempt.
	StatusAwaitingConfirmation Status = "awaiting_confirmation"

	// StatusSuccess is terminal for the attempt. Entering it dispatches the
	// application mail exactly once.
	StatusSuccess Status = "success"

	// StatusFailed means the charge request was rejected. The flow
	// auto-resets to idle after a short delay so the payer can retry.
	StatusFailed Status = "failed"
)

const defaultFailureResetDelay = 3 * time.Second

// DefaultRecipients is the admissions distribution list for finalized
// applications.
var DefaultRecipients = []string{
	"admissions@brainybayschools.com",
	"admin@brainybayschools.com",
	"director@brainybayschools.com",
}

var (
	// ErrAttemptInFlight is returned by SubmitPayment while an attempt is
	// already processing, awaiting confirmation, or succeeded.
	ErrAttemptInFlight = errors.New("enrollment: payment attempt already in flight")

	// ErrNotAwaitingConfirmation is returned by ConfirmPayment outside the
	// awaiting_confirmation state.
	ErrNotAwaitingConfirmation = errors.New("enrollment: no payment awaiting confirmation")
)

// FlowConfig holds the fee and finalize settings for a Flow.
type FlowConfig struct {
	// Fee is the application fee in whole shillings. Zero uses
	// DefaultApplicationFee.
	Fee int

	// Currency labels the fee in the application mail. Empty uses
	// DefaultCurrency.
	Currency string

	// Recipients receive the finalized application mail. Empty uses
	// DefaultRecipients.
	Recipients []string

	// FailureResetDelay is how long a failed attempt is displayed before
	// auto-resetting to idle. Zero means 3 seconds.
	FailureResetDelay time.Duration
}

// FlowDeps are the injected collaborators for a Flow. Payments is required;
// Mail is best effort (a finalized application without a configured sender is
// logged, not failed).
type FlowDeps struct {
	// Payments initiates and queries the application fee charge. Required.
	Payments payment.Provider

	// Mail dispatches the finalized application to the admissions list.
	// Nil logs the composed message instead.
	Mail mail.Sender

	// Metrics receives payment attempt instrumentation. Nil uses the global
	// default.
	Metrics *observe.Metrics
}

// Flow is the application payment state machine. One Flow tracks one
// applicant's current attempt; it is independent of the chat session manager
// and safe for concurrent use.
type Flow struct {
	cfg      FlowConfig
	payments payment.Provider
	mail     mail.Sender
	metrics  *observe.Metrics

	newRef func() string
	now    func() time.Time

	mu           sync.Mutex
	status       Status
	app          Application
	payerNumber  string
	checkoutID   string
	transaction  string
	attemptStart time.Time
	resetTimer   *time.Timer
}

// NewFlow creates an idle payment flow.
func NewFlow(deps FlowDeps, cfg FlowConfig) (*Flow, error) {
	if deps.Payments == nil {
		return nil, errors.New("enrollment: payment provider is required")
	}
	if cfg.Fee <= 0 {
		cfg.Fee = DefaultApplicationFee
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	if len(cfg.Recipients) == 0 {
		cfg.Recipients = DefaultRecipients
	}
	if cfg.FailureResetDelay <= 0 {
		cfg.FailureResetDelay = defaultFailureResetDelay
	}
	f := &Flow{
		cfg:      cfg,
		payments: deps.Payments,
		mail:     deps.Mail,
		metrics:  deps.Metrics,
		newRef:   newTransactionRef,
		now:      time.Now,
		status:   StatusIdle,
	}
	if f.metrics == nil {
		f.metrics = observe.DefaultMetrics()
	}
	return f, nil
}

// Status returns the current attempt state.
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// TransactionRef returns the transaction reference of a successful attempt,
// empty before success.
func (f *Flow) TransactionRef() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transaction
}

// SubmitPayment starts a payment attempt for app, charging the application
// fee to the given M-PESA number. It validates the application and the phone
// number, sends the charge request, and leaves the flow awaiting the payer's
// confirmation. On a gateway failure the flow enters failed and auto-resets
// to idle after the configured delay.
//
// Allowed from idle and failed only; an in-flight or succeeded attempt
// returns ErrAttemptInFlight.
func (f *Flow) SubmitPayment(ctx context.Context, app Application, msisdn string) error {
	if err := app.Validate(); err != nil {
		return err
	}
	phone, err := payment.NormalizeMSISDN(msisdn)
	if err != nil {
		return err
	}

	f.mu.Lock()
	switch f.status {
	case StatusIdle, StatusFailed:
	default:
		f.mu.Unlock()
		return ErrAttemptInFlight
	}
	f.cancelResetLocked()
	f.status = StatusProcessing
	f.app = app
	f.payerNumber = phone
	f.transaction = ""
	f.attemptStart = f.now()
	f.mu.Unlock()

	slog.Info("payment attempt started",
		"student", app.StudentName,
		"amount", f.cfg.Fee,
		"reference", accountReference(app.StudentName))

	ack, err := f.payments.RequestPayment(ctx, payment.Request{
		Amount:           f.cfg.Fee,
		PhoneNumber:      phone,
		AccountReference: accountReference(app.StudentName),
		Description:      "Application fee",
	})
	if err != nil {
		f.fail(ctx, err)
		return fmt.Errorf("enrollment: request payment: %w", err)
	}

	f.mu.Lock()
	f.checkoutID = ack.CheckoutRequestID
	f.status = StatusAwaitingConfirmation
	f.mu.Unlock()

	slog.Info("payment prompt delivered", "checkout_id", ack.CheckoutRequestID)
	return nil
}

// ConfirmPayment advances an awaiting attempt to success and finalizes the
// application: the gateway is queried for a receipt, the application mail is
// composed and dispatched to the admissions list, and the transaction
// reference is recorded. The finalize side effect fires exactly once per
// attempt; repeated calls return ErrNotAwaitingConfirmation without
// re-sending.
func (f *Flow) ConfirmPayment(ctx context.Context) error {
	f.mu.Lock()
	if f.status != StatusAwaitingConfirmation {
		f.mu.Unlock()
		return ErrNotAwaitingConfirmation
	}
	f.status = StatusSuccess
	app := f.app
	payer := f.payerNumber
	checkoutID := f.checkoutID
	start := f.attemptStart
	f.mu.Unlock()

	ref := f.lookupReceipt(ctx, checkoutID)
	if ref == "" {
		// Manual attestation with no gateway receipt gets a local reference.
		ref = f.newRef()
	}

	f.mu.Lock()
	f.transaction = ref
	f.mu.Unlock()

	f.metrics.RecordPaymentAttempt(ctx, "ok", f.now().Sub(start).Seconds())

	msg := f.composeApplicationMail(app, payer, ref)
	if f.mail == nil {
		slog.Warn("no mail sender configured; application not dispatched",
			"subject", msg.Subject, "transaction", ref)
		return nil
	}
	if err := f.mail.Send(ctx, msg); err != nil {
		// The payment stands; delivery is retried by the admissions team.
		slog.Error("application mail dispatch failed", "err", err, "transaction", ref)
		return fmt.Errorf("enrollment: send application mail: %w", err)
	}
	slog.Info("application dispatched",
		"student", app.StudentName, "transaction", ref, "recipients", len(f.cfg.Recipients))
	return nil
}

// Reset cancels any pending auto-reset and returns the flow to idle, clearing
// the attempt state.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelResetLocked()
	f.status = StatusIdle
	f.app = Application{}
	f.payerNumber = ""
	f.checkoutID = ""
	f.transaction = ""
}

// fail moves the flow to failed and schedules the auto-reset back to idle.
func (f *Flow) fail(ctx context.Context, cause error) {
	f.mu.Lock()
	f.status = StatusFailed
	start := f.attemptStart
	f.cancelResetLocked()
	f.resetTimer = time.AfterFunc(f.cfg.FailureResetDelay, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.status == StatusFailed {
			f.status = StatusIdle
		}
	})
	f.mu.Unlock()

	f.metrics.RecordPaymentAttempt(ctx, "error", f.now().Sub(start).Seconds())
	slog.Warn("payment attempt failed", "err", cause)
}

// cancelResetLocked stops a pending failure auto-reset. Must be called with
// f.mu held.
func (f *Flow) cancelResetLocked() {
	if f.resetTimer != nil {
		f.resetTimer.Stop()
		f.resetTimer = nil
	}
}

// lookupReceipt asks the gateway for the attempt's receipt number. Best
// effort: pending, failed, or unreachable lookups return empty.
func (f *Flow) lookupReceipt(ctx context.Context, checkoutID string) string {
	if checkoutID == "" {
		return ""
	}
	res, err := f.payments.QueryPayment(ctx, checkoutID)
	if err != nil {
		slog.Debug("payment receipt lookup failed", "err", err)
		return ""
	}
	if res.State != payment.StateSucceeded {
		return ""
	}
	return res.ReceiptNumber
}

// composeApplicationMail renders the finalized application notification.
func (f *Flow) composeApplicationMail(app Application, payer, ref string) mail.Message {
	message := app.Message
	if message == "" {
		message = "None provided"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear Admissions Team,\n\n")
	fmt.Fprintf(&b, "A new student application has been submitted via the Online Portal.\n\n")
	fmt.Fprintf(&b, "--- PAYMENT CONFIRMATION ---\n")
	fmt.Fprintf(&b, "Transaction Ref: %s\n", ref)
	fmt.Fprintf(&b, "Amount Paid: %s %d\n", f.cfg.Currency, f.cfg.Fee)
	fmt.Fprintf(&b, "Payer Number: %s\n\n", payer)
	fmt.Fprintf(&b, "--- STUDENT DETAILS ---\n")
	fmt.Fprintf(&b, "Full Name: %s\n", app.StudentName)
	fmt.Fprintf(&b, "Date of Birth: %s\n", app.DateOfBirth)
	fmt.Fprintf(&b, "Grade Applying For: %s\n\n", app.GradeLevel)
	fmt.Fprintf(&b, "--- PARENT/GUARDIAN DETAILS ---\n")
	fmt.Fprintf(&b, "Name: %s\n", app.GuardianName)
	fmt.Fprintf(&b, "Email: %s\n", app.Email)
	fmt.Fprintf(&b, "Phone: %s\n", app.Phone)
	fmt.Fprintf(&b, "Country: %s\n\n", app.Country)
	fmt.Fprintf(&b, "--- ADDITIONAL MESSAGE ---\n")
	fmt.Fprintf(&b, "%s\n\n", message)
	fmt.Fprintf(&b, "------------------------------------------------\n")
	fmt.Fprintf(&b, "This email was auto-generated by the application portal.\n")
	fmt.Fprintf(&b, "Please review the details above.\n")

	return mail.Message{
		To:      f.cfg.Recipients,
		Subject: fmt.Sprintf("New Student Application: %s (%s)", app.StudentName, app.GradeLevel),
		Body:    b.String(),
	}
}

// newTransactionRef generates a local "MPESA_"-prefixed reference for
// manually attested payments.
func newTransactionRef() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "MPESA_" + id[:9]
}
