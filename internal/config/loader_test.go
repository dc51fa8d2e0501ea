package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/brainybay/assistant/internal/config"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  ops_addr: ":9090"
  log_level: debug
providers:
  textgen:
    name: gemini
    api_key: test-key
    model: gemini-2.5-flash
    fallbacks:
      - name: ollama
        base_url: http://localhost:11434
  voice:
    name: gemini-live
    api_key: test-key
    voice: Kore
  records:
    name: canvas
    base_url: https://school.instructure.com
    token: canvas-token
  payment:
    name: daraja
    consumer_key: ck
    consumer_secret: cs
    short_code: "174379"
    passkey: pk
  mail:
    host: smtp.example.com
    port: 587
    from: noreply@example.com
assistant:
  system_prompt: You are a helpful school assistant.
  request_timeout: 20s
enrollment:
  application_fee: 5000
  currency: KES
  recipients:
    - admissions@example.com
  failure_reset_delay: 3s
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.OpsAddr != ":9090" {
		t.Errorf("ops_addr = %q, want :9090", cfg.Server.OpsAddr)
	}
	if cfg.Providers.Textgen.Name != "gemini" {
		t.Errorf("textgen name = %q, want gemini", cfg.Providers.Textgen.Name)
	}
	if len(cfg.Providers.Textgen.Fallbacks) != 1 || cfg.Providers.Textgen.Fallbacks[0].Name != "ollama" {
		t.Errorf("fallbacks = %+v, want one ollama entry", cfg.Providers.Textgen.Fallbacks)
	}
	if cfg.Assistant.RequestTimeout.Std() != 20*time.Second {
		t.Errorf("request_timeout = %s, want 20s", cfg.Assistant.RequestTimeout)
	}
	if cfg.Enrollment.ApplicationFee != 5000 {
		t.Errorf("application_fee = %d, want 5000", cfg.Enrollment.ApplicationFee)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_port: 8080
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_RecordsRequiresURLAndToken(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  records:
    name: canvas
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for records without base_url/token, got nil")
	}
	if !strings.Contains(err.Error(), "base_url") {
		t.Errorf("error should mention base_url, got: %v", err)
	}
	if !strings.Contains(err.Error(), "token") {
		t.Errorf("error should mention token, got: %v", err)
	}
}

func TestValidate_PaymentRequiresCredentials(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  payment:
    name: daraja
    short_code: "174379"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for payment without credentials, got nil")
	}
	if !strings.Contains(err.Error(), "consumer_key") {
		t.Errorf("error should mention consumer_key, got: %v", err)
	}
}

func TestValidate_FallbackNameRequired(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  textgen:
    name: gemini
    fallbacks:
      - model: llama3
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unnamed fallback, got nil")
	}
	if !strings.Contains(err.Error(), "fallbacks[0].name") {
		t.Errorf("error should mention fallbacks[0].name, got: %v", err)
	}
}

func TestValidate_BadRecipientAddress(t *testing.T) {
	t.Parallel()
	yaml := `
enrollment:
  recipients:
    - not-an-address
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid recipient, got nil")
	}
	if !strings.Contains(err.Error(), "recipients[0]") {
		t.Errorf("error should mention recipients[0], got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
enrollment:
  application_fee: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
	if !strings.Contains(errStr, "application_fee") {
		t.Errorf("error should mention application_fee, got: %v", err)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	// Sanity-check that the map is populated.
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	textgenNames := config.ValidProviderNames["textgen"]
	if len(textgenNames) == 0 {
		t.Fatal("ValidProviderNames[\"textgen\"] should not be empty")
	}
	found := false
	for _, n := range textgenNames {
		if n == "gemini" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames[\"textgen\"] should contain \"gemini\"")
	}
}
