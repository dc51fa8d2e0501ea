// Command bbassist runs the Brainybay study assistant: an interactive chat
// REPL with optional live voice mode, the enrollment payment flow, and an ops
// HTTP endpoint serving metrics and health checks.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brainybay/assistant/internal/assistant"
	"github.com/brainybay/assistant/internal/config"
	"github.com/brainybay/assistant/internal/enrollment"
	"github.com/brainybay/assistant/internal/health"
	"github.com/brainybay/assistant/internal/observe"
	"github.com/brainybay/assistant/internal/resilience"
	"github.com/brainybay/assistant/pkg/audio"
	audiomock "github.com/brainybay/assistant/pkg/audio/mock"
	"github.com/brainybay/assistant/pkg/provider/mail"
	smtpmail "github.com/brainybay/assistant/pkg/provider/mail/smtp"
	"github.com/brainybay/assistant/pkg/provider/payment"
	"github.com/brainybay/assistant/pkg/provider/payment/daraja"
	paymentmock "github.com/brainybay/assistant/pkg/provider/payment/mock"
	"github.com/brainybay/assistant/pkg/provider/records"
	"github.com/brainybay/assistant/pkg/provider/records/canvas"
	recordsmock "github.com/brainybay/assistant/pkg/provider/records/mock"
	"github.com/brainybay/assistant/pkg/provider/textgen"
	"github.com/brainybay/assistant/pkg/provider/textgen/anyllm"
	"github.com/brainybay/assistant/pkg/provider/voice"
	geminilive "github.com/brainybay/assistant/pkg/provider/voice/gemini"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	level := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		applyConfigChange(level, old, new)
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "bbassist: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "bbassist: %v\n", err)
		}
		return 1
	}
	defer watcher.Stop()

	cfg := watcher.Current()
	level.Set(slogLevel(cfg.Server.LogLevel))

	slog.Info("bbassist starting",
		"config", *configPath,
		"ops_addr", cfg.Server.OpsAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "bbassist"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics := observe.DefaultMetrics()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	manager, err := assistant.NewManager(assistant.Deps{
		Textgen:   providers.Textgen,
		Voice:     providers.Voice,
		Records:   providers.Records,
		Capture:   providers.Capture,
		NewOutput: providers.NewOutput,
		Metrics:   metrics,
	}, assistant.Config{
		SystemPrompt:   cfg.Assistant.SystemPrompt,
		Greeting:       cfg.Assistant.Greeting,
		Voice:          cfg.Providers.Voice.Voice,
		RequestTimeout: cfg.Assistant.RequestTimeout.Std(),
	})
	if err != nil {
		slog.Error("failed to create session manager", "err", err)
		return 1
	}
	defer manager.StopVoice()

	flow, err := enrollment.NewFlow(enrollment.FlowDeps{
		Payments: providers.Payments,
		Mail:     providers.Mail,
		Metrics:  metrics,
	}, enrollment.FlowConfig{
		Fee:               cfg.Enrollment.ApplicationFee,
		Currency:          cfg.Enrollment.Currency,
		Recipients:        cfg.Enrollment.Recipients,
		FailureResetDelay: cfg.Enrollment.FailureResetDelay.Std(),
	})
	if err != nil {
		slog.Error("failed to create enrollment flow", "err", err)
		return 1
	}

	if cfg.Server.OpsAddr != "" {
		srv := opsServer(cfg.Server.OpsAddr, metrics, providers)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("ops server error", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("ops server shutdown error", "err", err)
			}
		}()
		slog.Info("ops server listening", "addr", cfg.Server.OpsAddr)
	}

	printBanner(manager)
	repl(ctx, manager, flow)

	slog.Info("goodbye")
	return 0
}

// applyConfigChange reacts to a reloaded config file. Only the log level is
// applied live; other safe-reload fields take effect on restart.
func applyConfigChange(level *slog.LevelVar, old, new *config.Config) {
	diff := config.Diff(old, new)
	if !diff.HasChanges() {
		return
	}
	if diff.LogLevelChanged {
		level.Set(slogLevel(diff.NewLogLevel))
		slog.Info("log level updated", "level", diff.NewLogLevel)
	}
	if diff.SystemPromptChanged || diff.GreetingChanged {
		slog.Info("assistant prompt changed; applies on restart")
	}
	if diff.RecipientsChanged || diff.FeeChanged {
		slog.Info("enrollment settings changed; apply on restart")
	}
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// providerSet is everything the session manager and enrollment flow consume.
type providerSet struct {
	Textgen   textgen.Provider
	Voice     voice.Provider
	Records   records.Provider
	Payments  payment.Provider
	Mail      mail.Sender
	Capture   audio.CaptureDevice
	NewOutput func() (audio.Output, error)
}

// registerBuiltinProviders wires the shipped provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// The any-llm backends share one construction pattern: optional API key
	// plus optional base URL.
	for _, providerName := range []string{"gemini", "openai", "groq", "mistral", "deepseek"} {
		reg.RegisterTextgen(providerName, func(entry config.ProviderEntry) (textgen.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not a key.
	reg.RegisterTextgen("ollama", func(entry config.ProviderEntry) (textgen.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	reg.RegisterVoice("gemini-live", func(cfg config.VoiceConfig) (voice.Provider, error) {
		var opts []geminilive.Option
		if cfg.Model != "" {
			opts = append(opts, geminilive.WithModel(cfg.Model))
		}
		return geminilive.New(cfg.APIKey, opts...), nil
	})

	reg.RegisterRecords("canvas", func(cfg config.RecordsConfig) (records.Provider, error) {
		return canvas.New(cfg.BaseURL, cfg.Token)
	})

	reg.RegisterPayment("daraja", func(cfg config.PaymentConfig) (payment.Provider, error) {
		var opts []daraja.Option
		if cfg.BaseURL != "" {
			opts = append(opts, daraja.WithBaseURL(cfg.BaseURL))
		}
		return daraja.New(daraja.Config{
			ConsumerKey:    cfg.ConsumerKey,
			ConsumerSecret: cfg.ConsumerSecret,
			ShortCode:      cfg.ShortCode,
			Passkey:        cfg.Passkey,
			CallbackURL:    cfg.CallbackURL,
		}, opts...)
	})

	reg.RegisterMail("smtp", func(cfg config.MailConfig) (mail.Sender, error) {
		return smtpmail.New(smtpmail.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			From:     cfg.From,
			Username: cfg.Username,
			Password: cfg.Password,
		})
	})
}

// buildProviders instantiates every provider named in cfg. Unconfigured
// collaborators fall back to demo doubles so the REPL works out of the box.
func buildProviders(cfg *config.Config, reg *config.Registry) (*providerSet, error) {
	ps := &providerSet{}

	if name := cfg.Providers.Textgen.Name; name != "" {
		primary, err := reg.CreateTextgen(cfg.Providers.Textgen.ProviderEntry)
		if err != nil {
			return nil, fmt.Errorf("create textgen provider %q: %w", name, err)
		}
		slog.Info("provider created", "kind", "textgen", "name", name)

		if len(cfg.Providers.Textgen.Fallbacks) > 0 {
			group := resilience.NewTextgenFallback(primary, name, resilience.FallbackConfig{})
			for _, entry := range cfg.Providers.Textgen.Fallbacks {
				fb, err := reg.CreateTextgen(entry)
				if err != nil {
					return nil, fmt.Errorf("create textgen fallback %q: %w", entry.Name, err)
				}
				group.AddFallback(entry.Name, fb)
				slog.Info("provider created", "kind", "textgen", "name", entry.Name, "role", "fallback")
			}
			ps.Textgen = group
		} else {
			ps.Textgen = primary
		}
	} else {
		return nil, errors.New("no textgen provider configured")
	}

	if name := cfg.Providers.Voice.Name; name != "" {
		p, err := reg.CreateVoice(cfg.Providers.Voice)
		if err != nil {
			return nil, fmt.Errorf("create voice provider %q: %w", name, err)
		}
		ps.Voice = p
		slog.Info("provider created", "kind", "voice", "name", name)

		// No native microphone or speaker backend ships yet; the scripted
		// audio device keeps /voice sessions functional against the live API.
		ps.Capture = &audiomock.Capture{FramesCh: make(chan audio.Frame, 16)}
		ps.NewOutput = func() (audio.Output, error) { return audiomock.NewOutput(24000), nil }
	}

	if name := cfg.Providers.Records.Name; name != "" {
		p, err := reg.CreateRecords(cfg.Providers.Records)
		if err != nil {
			return nil, fmt.Errorf("create records provider %q: %w", name, err)
		}
		ps.Records = p
		slog.Info("provider created", "kind", "records", "name", name)
	} else {
		ps.Records = &recordsmock.Provider{}
		slog.Info("no records provider configured; using demo dataset")
	}

	if name := cfg.Providers.Payment.Name; name != "" {
		p, err := reg.CreatePayment(cfg.Providers.Payment)
		if err != nil {
			return nil, fmt.Errorf("create payment provider %q: %w", name, err)
		}
		ps.Payments = p
		slog.Info("provider created", "kind", "payment", "name", name)
	} else {
		ps.Payments = &paymentmock.Provider{}
		slog.Info("no payment provider configured; payments are simulated")
	}

	if cfg.Providers.Mail.Host != "" {
		p, err := reg.CreateMail("smtp", cfg.Providers.Mail)
		if err != nil {
			return nil, fmt.Errorf("create mail sender: %w", err)
		}
		ps.Mail = p
		slog.Info("provider created", "kind", "mail", "name", "smtp")
	}

	return ps, nil
}

// opsServer builds the metrics + health HTTP server.
func opsServer(addr string, metrics *observe.Metrics, ps *providerSet) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(health.Checker{
		Name: "textgen",
		Check: func(context.Context) error {
			if ps.Textgen == nil {
				return errors.New("not configured")
			}
			return nil
		},
	}).Register(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func printBanner(m *assistant.Manager) {
	fmt.Println("Brainybay Study Assistant")
	fmt.Println("Commands: /voice  /fees  /apply  /confirm  /reset  /quit")
	fmt.Println()
	msgs := m.Messages()
	fmt.Printf("assistant> %s\n", msgs[len(msgs)-1].Text)
}

// repl reads lines from stdin until EOF, /quit, or ctx cancellation.
func repl(ctx context.Context, m *assistant.Manager, flow *enrollment.Flow) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		fmt.Print("you> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if done := handleLine(ctx, m, flow, lines, line); done {
				return
			}
		}
	}
}

func handleLine(ctx context.Context, m *assistant.Manager, flow *enrollment.Flow, lines <-chan string, line string) (done bool) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case line == "/quit":
		return true
	case line == "/voice":
		if err := m.ToggleVoice(ctx); err != nil {
			fmt.Printf("voice: %v\n", err)
		} else if m.VoiceActive() {
			fmt.Println("voice session started — type to switch back to text")
		} else {
			fmt.Println("voice session stopped")
		}
		return false
	case line == "/fees":
		printFees()
		return false
	case strings.HasPrefix(line, "/apply"):
		startApplication(ctx, flow, lines)
		return false
	case line == "/confirm":
		if err := flow.ConfirmPayment(ctx); err != nil {
			fmt.Printf("confirm: %v\n", err)
		} else {
			fmt.Printf("payment confirmed — transaction %s, application dispatched\n", flow.TransactionRef())
		}
		return false
	case line == "/reset":
		flow.Reset()
		fmt.Println("enrollment flow reset")
		return false
	}

	if !m.Submit(ctx, line) {
		fmt.Println("(request in progress, try again shortly)")
		return false
	}
	msgs := m.Messages()
	last := msgs[len(msgs)-1]
	fmt.Printf("assistant> %s\n", last.Text)
	printAttachments(last)
	return false
}

func printFees() {
	fmt.Println("Fee Structure (KES per Term)")
	for _, band := range enrollment.FeeSchedule() {
		fmt.Printf("  %-32s %-8s %7d\n", band.Stage, band.Year, band.Fee)
	}
	fmt.Printf("One-time application fee: %d\n", enrollment.DefaultApplicationFee)
}

// startApplication collects the application interactively and submits the
// fee payment. Input arrives on the shared REPL line channel.
func startApplication(ctx context.Context, flow *enrollment.Flow, lines <-chan string) {
	ask := func(prompt string) string {
		fmt.Printf("%s: ", prompt)
		select {
		case <-ctx.Done():
			return ""
		case line := <-lines:
			return strings.TrimSpace(line)
		}
	}

	app := enrollment.Application{
		StudentName:  ask("Student full name"),
		DateOfBirth:  ask("Date of birth"),
		GradeLevel:   ask("Grade level applying for"),
		GuardianName: ask("Parent/guardian name"),
		Email:        ask("Email"),
		Phone:        ask("Phone"),
		Country:      ask("Country of residence"),
		Message:      ask("Additional message (optional)"),
	}
	msisdn := ask("M-PESA number for the application fee")

	if err := flow.SubmitPayment(ctx, app, msisdn); err != nil {
		fmt.Printf("payment: %v\n", err)
		return
	}
	fmt.Println("Check your phone for the M-PESA prompt, then type /confirm once paid.")
}

func printAttachments(msg assistant.ChatMessage) {
	if msg.Attachments == nil {
		return
	}
	if len(msg.Attachments.Assignments) > 0 {
		fmt.Println("  upcoming assignments:")
		for _, a := range msg.Attachments.Assignments {
			fmt.Printf("    [%s] %s — due %s\n", a.Priority, a.Title, a.DueDate)
		}
	}
	if len(msg.Attachments.Grades) > 0 {
		fmt.Println("  current grades:")
		for subject, grade := range msg.Attachments.Grades {
			fmt.Printf("    %s: %s\n", subject, grade)
		}
	}
	if len(msg.Attachments.Recommendations) > 0 {
		fmt.Println("  study recommendations:")
		for _, r := range msg.Attachments.Recommendations {
			fmt.Printf("    %s (%s): %s\n", r.Subject, r.Level, r.Reason)
		}
	}
}
