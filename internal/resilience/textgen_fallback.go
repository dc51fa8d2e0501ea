package resilience

import (
	"context"

	"github.com/brainybay/assistant/pkg/provider/textgen"
	"github.com/brainybay/assistant/pkg/types"
)

// TextgenFallback implements [textgen.Provider] with automatic failover across
// multiple model backends. Each backend has its own circuit breaker; when the
// primary fails or its breaker is open, the next healthy fallback is tried.
type TextgenFallback struct {
	group *FallbackGroup[textgen.Provider]
}

// Compile-time interface assertion.
var _ textgen.Provider = (*TextgenFallback)(nil)

// NewTextgenFallback creates a [TextgenFallback] with primary as the preferred
// backend.
func NewTextgenFallback(primary textgen.Provider, primaryName string, cfg FallbackConfig) *TextgenFallback {
	return &TextgenFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional text generation provider as a fallback.
func (f *TextgenFallback) AddFallback(name string, provider textgen.Provider) {
	f.group.AddFallback(name, provider)
}

// Generate sends the request to the first healthy provider and returns its
// response. If the primary fails, subsequent fallbacks are tried.
func (f *TextgenFallback) Generate(ctx context.Context, req textgen.Request) (*textgen.Response, error) {
	return ExecuteWithResult(f.group, func(p textgen.Provider) (*textgen.Response, error) {
		return p.Generate(ctx, req)
	})
}

// Capabilities returns the primary backend's capabilities. Capabilities are
// static metadata and do not participate in failover.
func (f *TextgenFallback) Capabilities() types.ModelCapabilities {
	return f.group.primary().Capabilities()
}
