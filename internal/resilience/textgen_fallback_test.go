package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/brainybay/assistant/pkg/provider/textgen"
	textgenmock "github.com/brainybay/assistant/pkg/provider/textgen/mock"
	"github.com/brainybay/assistant/pkg/types"
)

func TestTextgenFallback_Generate_PrimarySuccess(t *testing.T) {
	primary := &textgenmock.Provider{
		Response: &textgen.Response{Text: "hello from primary"},
	}
	secondary := &textgenmock.Provider{
		Response: &textgen.Response{Text: "hello from secondary"},
	}

	fb := NewTextgenFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Generate(context.Background(), textgen.Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "hello from primary" {
		t.Fatalf("text = %q, want 'hello from primary'", resp.Text)
	}
	if len(primary.GenerateCalls) != 1 {
		t.Fatalf("primary called %d times, want 1", len(primary.GenerateCalls))
	}
	if len(secondary.GenerateCalls) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.GenerateCalls))
	}
}

func TestTextgenFallback_Generate_Failover(t *testing.T) {
	primary := &textgenmock.Provider{
		Err: errors.New("primary down"),
	}
	secondary := &textgenmock.Provider{
		Response: &textgen.Response{Text: "hello from secondary"},
	}

	fb := NewTextgenFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Generate(context.Background(), textgen.Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "hello from secondary" {
		t.Fatalf("text = %q, want 'hello from secondary'", resp.Text)
	}
}

func TestTextgenFallback_Generate_AllFail(t *testing.T) {
	primary := &textgenmock.Provider{Err: errors.New("primary down")}
	secondary := &textgenmock.Provider{Err: errors.New("secondary down")}

	fb := NewTextgenFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	_, err := fb.Generate(context.Background(), textgen.Request{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestTextgenFallback_Generate_OpenBreakerSkipsPrimary(t *testing.T) {
	primary := &textgenmock.Provider{Err: errors.New("primary down")}
	secondary := &textgenmock.Provider{
		Response: &textgen.Response{Text: "ok"},
	}

	fb := NewTextgenFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1},
	})
	fb.AddFallback("secondary", secondary)

	// First call trips the primary's breaker.
	if _, err := fb.Generate(context.Background(), textgen.Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Second call should skip the primary entirely.
	if _, err := fb.Generate(context.Background(), textgen.Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(primary.GenerateCalls); got != 1 {
		t.Fatalf("primary called %d times, want 1", got)
	}
	if got := len(secondary.GenerateCalls); got != 2 {
		t.Fatalf("secondary called %d times, want 2", got)
	}
}

func TestTextgenFallback_Capabilities(t *testing.T) {
	primary := &textgenmock.Provider{
		ModelCapabilities: types.ModelCapabilities{
			ContextWindow:       128000,
			SupportsToolCalling: true,
		},
	}

	fb := NewTextgenFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	caps := fb.Capabilities()
	if caps.ContextWindow != 128000 {
		t.Fatalf("ContextWindow = %d, want 128000", caps.ContextWindow)
	}
	if !caps.SupportsToolCalling {
		t.Fatal("SupportsToolCalling should be true")
	}
}
