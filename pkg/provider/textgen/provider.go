// Package textgen defines the Provider interface for text generation backends.
//
// A text generation provider wraps a remote or local model API (e.g., Google
// Gemini, OpenAI GPT-4o, or a local Ollama instance) and exposes a uniform
// interface for the assistant to produce conversational replies, request tool
// calls, and inspect model capabilities without coupling to any specific SDK.
//
// Implementors must be safe for concurrent use.
package textgen

import (
	"context"

	"github.com/brainybay/assistant/pkg/types"
)

// Usage holds token accounting information returned by the backend.
// Counts are in the model's native token unit and may differ between
// providers for the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages and
	// system prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// Citation is a grounding reference attached to a generated reply, pointing
// at the source material the model drew on.
type Citation struct {
	// URI is the address of the cited source.
	URI string

	// Title is the human-readable title of the source, when known.
	Title string
}

// Request carries everything the model needs to produce a reply.
// Callers should treat a zero-value request as invalid; at minimum Messages
// must be non-empty.
type Request struct {
	// SystemPrompt is a high-priority instruction injected before the
	// conversation. Providers without a dedicated system field should prepend
	// it as a "system"-role message.
	SystemPrompt string

	// Messages is the ordered conversation so far, including the message that
	// drives this reply as the final entry. Tool results appear as
	// "tool"-role messages referencing the call they answer.
	Messages []types.Message

	// Tools is the set of function declarations offered to the model. The
	// model may answer with one or more calls instead of (or alongside) text.
	Tools []types.ToolDefinition

	// Temperature controls output randomness in [0.0, 2.0]. Zero means use
	// the provider default.
	Temperature float64

	// MaxTokens caps the number of completion tokens. Zero means use the
	// provider default.
	MaxTokens int
}

// Response is the model's reply to a Request.
type Response struct {
	// Text is the full text of the reply. Empty when the model responds
	// exclusively with tool calls.
	Text string

	// ToolCalls lists the tool invocations the model is requesting. The
	// caller executes them and sends a follow-up Request carrying the
	// results.
	ToolCalls []types.ToolCall

	// Citations holds grounding references for the reply. Most backends
	// return none.
	Citations []Citation

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any text generation backend.
//
// Implementations must be safe for concurrent use from multiple goroutines
// and must propagate context cancellation promptly.
type Provider interface {
	// Generate sends req to the model and waits for the full reply.
	// Returns an error if the request fails or ctx is cancelled before the
	// reply arrives.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Capabilities returns static metadata describing what this provider's
	// underlying model supports. The result is assumed constant for the
	// lifetime of the Provider instance.
	Capabilities() types.ModelCapabilities
}
