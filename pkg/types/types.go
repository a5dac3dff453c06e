// Package types defines the shared types used across all Sonoglot packages.
//
// These types form the lingua franca between the capture layer, the caption
// board, the matching engine, and the LLM providers. They are intentionally
// minimal — each package defines its own domain types, but cross-cutting data
// structures live here to avoid circular imports.
package types

import "time"

// TranscriptFragment is a single speech-recognition result delivered by a
// capture stream. Both interim (live) and final fragments use this type.
type TranscriptFragment struct {
	// Text is the recognised speech content.
	Text string

	// IsFinal indicates whether this is a final (authoritative) or interim
	// (still-changing) fragment.
	IsFinal bool

	// Lang is the BCP-47 language the recognition engine was listening in
	// when it produced this fragment (e.g., "pt-BR", "en-US").
	Lang string

	// Confidence is the overall confidence score (0.0–1.0). May be zero if
	// the engine does not report confidence.
	Confidence float64

	// Timestamp marks when the fragment arrived, relative to session start.
	Timestamp time.Duration
}

// Message represents a single message in an LLM conversation history.
type Message struct {
	// Role is one of "system", "user", "assistant", or "tool".
	Role string

	// Content is the text content of the message.
	Content string

	// Name is an optional participant name (for multi-speaker contexts).
	Name string

	// ToolCalls contains any tool invocations requested by the assistant.
	ToolCalls []ToolCall

	// ToolCallID is set when Role is "tool", identifying which tool call this responds to.
	ToolCallID string
}

// ToolCall represents a tool/function invocation requested by the LLM.
type ToolCall struct {
	// ID is the unique identifier for this tool call (provider-assigned).
	ID string

	// Name is the tool/function name.
	Name string

	// Arguments is the JSON-encoded arguments string.
	Arguments string
}

// ToolDefinition describes a tool that can be offered to an LLM.
type ToolDefinition struct {
	// Name is the tool's unique identifier.
	Name string

	// Description explains what the tool does (included in LLM prompts).
	Description string

	// Parameters is the JSON Schema describing the tool's input parameters.
	Parameters map[string]any
}

// ModelCapabilities describes what an LLM model supports.
type ModelCapabilities struct {
	// ContextWindow is the maximum token count for input + output.
	ContextWindow int

	// MaxOutputTokens is the maximum tokens the model can generate in one completion.
	MaxOutputTokens int

	// SupportsToolCalling indicates native function/tool calling support.
	SupportsToolCalling bool

	// SupportsVision indicates the model can process image inputs.
	SupportsVision bool

	// SupportsStreaming indicates the model supports streaming completions.
	SupportsStreaming bool
}
