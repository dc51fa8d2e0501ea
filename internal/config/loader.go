package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per collaborator kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"textgen": {"gemini", "openai", "ollama", "groq", "mistral", "deepseek"},
	"voice":   {"gemini-live"},
	"records": {"canvas"},
	"payment": {"daraja"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("textgen", cfg.Providers.Textgen.Name)
	for _, fb := range cfg.Providers.Textgen.Fallbacks {
		validateProviderName("textgen", fb.Name)
	}
	validateProviderName("voice", cfg.Providers.Voice.Name)
	validateProviderName("records", cfg.Providers.Records.Name)
	validateProviderName("payment", cfg.Providers.Payment.Name)

	// Textgen fallbacks need names so failures can be attributed in logs.
	for i, fb := range cfg.Providers.Textgen.Fallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.textgen.fallbacks[%d].name is required", i))
		}
	}

	if cfg.Providers.Textgen.Name == "" {
		slog.Warn("no textgen provider configured; text turns will not be able to generate responses")
	}

	// Records needs both base URL and token to reach the LMS.
	if cfg.Providers.Records.Name != "" {
		if cfg.Providers.Records.BaseURL == "" {
			errs = append(errs, errors.New("providers.records.base_url is required when a records provider is configured"))
		}
		if cfg.Providers.Records.Token == "" {
			errs = append(errs, errors.New("providers.records.token is required when a records provider is configured"))
		}
	}

	// Payment credentials come as a set.
	if cfg.Providers.Payment.Name != "" {
		if cfg.Providers.Payment.ConsumerKey == "" || cfg.Providers.Payment.ConsumerSecret == "" {
			errs = append(errs, errors.New("providers.payment.consumer_key and consumer_secret are required when a payment provider is configured"))
		}
		if cfg.Providers.Payment.ShortCode == "" {
			errs = append(errs, errors.New("providers.payment.short_code is required when a payment provider is configured"))
		}
	}

	// Mail
	if cfg.Providers.Mail.Port < 0 || cfg.Providers.Mail.Port > 65535 {
		errs = append(errs, fmt.Errorf("providers.mail.port %d is out of range [0, 65535]", cfg.Providers.Mail.Port))
	}
	if cfg.Providers.Mail.Host != "" && cfg.Providers.Mail.From == "" {
		errs = append(errs, errors.New("providers.mail.from is required when providers.mail.host is set"))
	}

	// Assistant
	if cfg.Assistant.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("assistant.request_timeout %s must not be negative", cfg.Assistant.RequestTimeout))
	}

	// Enrollment
	if cfg.Enrollment.ApplicationFee < 0 {
		errs = append(errs, fmt.Errorf("enrollment.application_fee %d must not be negative", cfg.Enrollment.ApplicationFee))
	}
	if cfg.Enrollment.FailureResetDelay < 0 {
		errs = append(errs, fmt.Errorf("enrollment.failure_reset_delay %s must not be negative", cfg.Enrollment.FailureResetDelay))
	}
	for i, addr := range cfg.Enrollment.Recipients {
		if !strings.Contains(addr, "@") {
			errs = append(errs, fmt.Errorf("enrollment.recipients[%d] %q is not a valid address", i, addr))
		}
	}
	if len(cfg.Enrollment.Recipients) > 0 && cfg.Providers.Mail.Host == "" {
		slog.Warn("enrollment.recipients is set but providers.mail.host is empty; finalize mail will not be delivered")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
