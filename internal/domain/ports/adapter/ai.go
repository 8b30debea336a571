package adapter

import (
	"context"
	"encoding/json"
)

// Message is one conversational message as seen by a model provider.
// ToolCalls is set on assistant messages that requested a tool; ToolCallID
// links a "tool" role message back to the call it answers.
type Message struct {
	Role       string `json:"role"` // "user", "assistant", "system", "tool"
	Content    string `json:"content"`
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a structured function call requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// ToolDef declares a callable tool. Parameters is a JSON Schema object.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Usage for a single model invocation.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// InvokeRequest describes one model invocation. An empty ToolChoice leaves
// tool use to the model; a tool name forces that tool.
type InvokeRequest struct {
	System     string
	Messages   []Message
	Tools      []ToolDef
	ToolChoice string
}

// InvokeResult is the complete output of a non-streaming invocation.
type InvokeResult struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

// Fragment is one incremental piece of assistant output from a streaming
// invocation. Content is the cumulative text of the message so far. Final
// is the provider adapter's normalized end-of-turn signal: each adapter
// translates its own completion encoding and must never report Final for a
// fragment that carries tool calls. After a fragment with Err the channel
// is closed.
type Fragment struct {
	Content   string
	ToolCalls []ToolCall
	Final     bool
	Usage     Usage
	Err       error
}

// ModelAdapter is the port for LLM invocation. Implementations are selected
// by configuration, one per provider.
type ModelAdapter interface {
	Name() string

	Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error)

	// StreamInvoke emits fragments until the message completes; the channel
	// is closed after the last fragment.
	StreamInvoke(ctx context.Context, req InvokeRequest) (<-chan Fragment, error)

	// CountTokens returns prompt tokens for the messages, best-effort when
	// the provider has no exact counter.
	CountTokens(ctx context.Context, messages []Message) (int, error)
}
