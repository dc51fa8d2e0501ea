// Package config provides the configuration schema, loader, and provider
// registry for the assistant service.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a [time.Duration] that decodes from YAML strings like "30s".
type Duration time.Duration

// Std returns the value as a standard [time.Duration].
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Assistant  AssistantConfig  `yaml:"assistant"`
	Enrollment EnrollmentConfig `yaml:"enrollment"`
}

// ServerConfig holds the operational HTTP endpoint and logging settings.
type ServerConfig struct {
	// OpsAddr is the TCP address the ops server (metrics, health) listens on
	// (e.g., ":9090"). Empty disables the ops server.
	OpsAddr string `yaml:"ops_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which provider implementation to use for each
// collaborator. Each entry selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	Textgen TextgenConfig `yaml:"textgen"`
	Voice   VoiceConfig   `yaml:"voice"`
	Records RecordsConfig `yaml:"records"`
	Payment PaymentConfig `yaml:"payment"`
	Mail    MailConfig    `yaml:"mail"`
}

// ProviderEntry is the common configuration block shared by generation
// backends. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered backend (e.g., "gemini", "openai", "ollama").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the backend's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default API endpoint.
	// Leave empty to use the built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the backend (e.g., "gemini-2.5-flash").
	Model string `yaml:"model"`
}

// TextgenConfig configures the text generation collaborator: a primary
// backend plus zero or more failover fallbacks tried in order.
type TextgenConfig struct {
	ProviderEntry `yaml:",inline"`

	// Fallbacks are additional backends tried when the primary fails.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// VoiceConfig configures the streaming voice collaborator.
type VoiceConfig struct {
	// Name selects the registered voice provider (e.g., "gemini-live").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the voice API.
	APIKey string `yaml:"api_key"`

	// Model selects the voice-capable model. Empty uses the provider default.
	Model string `yaml:"model"`

	// Voice is the prebuilt voice name (e.g., "Kore", "Aoede").
	Voice string `yaml:"voice"`
}

// RecordsConfig configures the academic records collaborator.
type RecordsConfig struct {
	// Name selects the registered records provider (e.g., "canvas").
	Name string `yaml:"name"`

	// BaseURL is the LMS instance URL (e.g., "https://school.instructure.com").
	BaseURL string `yaml:"base_url"`

	// Token is the API access token.
	Token string `yaml:"token"`
}

// PaymentConfig configures the payment collaborator.
type PaymentConfig struct {
	// Name selects the registered payment provider (e.g., "daraja").
	Name string `yaml:"name"`

	// ConsumerKey and ConsumerSecret are the OAuth client credentials.
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`

	// ShortCode is the business short code payments are made to.
	ShortCode string `yaml:"short_code"`

	// Passkey is the Lipa na M-PESA online passkey.
	Passkey string `yaml:"passkey"`

	// CallbackURL receives the asynchronous payment result.
	CallbackURL string `yaml:"callback_url"`

	// BaseURL overrides the API endpoint. Empty uses the sandbox.
	BaseURL string `yaml:"base_url"`
}

// MailConfig configures the SMTP notification sender.
type MailConfig struct {
	// Host is the SMTP server hostname. Empty disables mail delivery.
	Host string `yaml:"host"`

	// Port is the SMTP server port. Zero means 587.
	Port int `yaml:"port"`

	// From is the envelope sender address.
	From string `yaml:"from"`

	// Username and Password enable PLAIN authentication when both are set.
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// AssistantConfig holds conversation behaviour settings.
type AssistantConfig struct {
	// SystemPrompt is the system instruction sent with every generation
	// request. Empty uses the built-in default.
	SystemPrompt string `yaml:"system_prompt"`

	// Greeting is the assistant's opening message shown when a session starts.
	Greeting string `yaml:"greeting"`

	// RequestTimeout bounds each remote generation or tool fetch call.
	// Zero means 30 seconds.
	RequestTimeout Duration `yaml:"request_timeout"`
}

// EnrollmentConfig holds settings for the application payment flow.
type EnrollmentConfig struct {
	// ApplicationFee is the one-time application fee in whole currency units.
	// Zero means the built-in default.
	ApplicationFee int `yaml:"application_fee"`

	// Currency is the ISO 4217 display code (e.g., "KES").
	Currency string `yaml:"currency"`

	// Recipients are the addresses notified when an application is finalized.
	Recipients []string `yaml:"recipients"`

	// FailureResetDelay is how long a failed payment attempt is displayed
	// before the flow resets to idle. Zero means 3 seconds.
	FailureResetDelay Duration `yaml:"failure_reset_delay"`
}
