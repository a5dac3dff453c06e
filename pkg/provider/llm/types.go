package llm

import "github.com/sonoglot/sonoglot/pkg/types"

// Aliases so that callers working exclusively with this package do not need a
// second import for the conversation types.
type (
	// Message represents a single message in an LLM conversation history.
	Message = types.Message

	// ToolCall represents a tool/function invocation requested by the LLM.
	ToolCall = types.ToolCall

	// ToolDefinition describes a tool that can be offered to an LLM.
	ToolDefinition = types.ToolDefinition

	// ModelCapabilities describes what an LLM model supports.
	ModelCapabilities = types.ModelCapabilities
)
