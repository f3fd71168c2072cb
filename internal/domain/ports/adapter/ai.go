// File: internal/domain/ports/adapter/ai.go
package adapter

import "context"

// Property describes one parameter of a tool, JSON-schema style.
type Property struct {
	Type        string
	Description string
}

type ToolSchema struct {
	Properties map[string]Property
	Required   []string
}

// ToolDefinition is a provider-neutral function declaration. Each provider
// adapter converts it to its own schema type privately.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      ToolSchema
}

// ToolCall is one function invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult carries the outcome of one executed tool call back to the model.
// Err is set in-band when execution failed; the conversation continues.
type ToolResult struct {
	ID      string
	Name    string
	Payload any
	Err     string
}

// ModelReply is a single model turn: free text and/or tool call requests.
type ModelReply struct {
	Text      string
	ToolCalls []ToolCall
}

// ChatSession is a stateful multi-turn conversation with tool calling.
type ChatSession interface {
	SendText(ctx context.Context, text string) (*ModelReply, error)
	SendToolResults(ctx context.Context, results []ToolResult) (*ModelReply, error)
}

// ConversationalAI opens tool-enabled chat sessions against one provider.
type ConversationalAI interface {
	StartChat(ctx context.Context, model string, tools []ToolDefinition) (ChatSession, error)
	Provider() string
}
