// Package types defines the shared types used across the assistant packages.
//
// These are the cross-cutting data structures exchanged between the session
// manager and the generation providers. Each package defines its own domain
// types; only what would otherwise cause circular imports lives here.
package types

// Message represents a single message in a generation conversation history.
type Message struct {
	// Role is one of "system", "user", "assistant", or "tool".
	Role string

	// Content is the text content of the message.
	Content string

	// ToolCalls contains any tool invocations requested by the assistant.
	ToolCalls []ToolCall

	// ToolCallID is set when Role is "tool", identifying which tool call this
	// responds to.
	ToolCallID string
}

// ToolCall represents a tool/function invocation requested by the model.
type ToolCall struct {
	// ID is the unique identifier for this tool call (provider-assigned).
	ID string

	// Name is the tool/function name.
	Name string

	// Arguments is the JSON-encoded arguments string.
	Arguments string
}

// ToolDefinition describes a tool that can be offered to the model.
type ToolDefinition struct {
	// Name is the tool's unique identifier.
	Name string

	// Description explains what the tool does (included in model prompts).
	Description string

	// Parameters is the JSON Schema describing the tool's input parameters.
	Parameters map[string]any
}

// ModelCapabilities describes static properties of a generation backend.
type ModelCapabilities struct {
	// SupportsToolCalling indicates whether the model can request tool calls.
	SupportsToolCalling bool

	// ContextWindow is the maximum input token count the model accepts.
	ContextWindow int

	// MaxOutputTokens is the maximum completion length the model can generate.
	MaxOutputTokens int
}
