// File: internal/infra/adapters/ai/factory.go
package ai

import (
	"context"
	"fmt"
	"strings"

	"sprint-estimator/internal/domain/ports/adapter"
)

var _ adapter.ConversationalAI = (*MultiAdapter)(nil)

// MultiAdapter routes chat sessions to a provider by model id prefix.
// "gemini-*" goes to Gemini, "gpt-*" and "o*" go to OpenAI. An unknown
// prefix falls back to whichever provider is configured.
type MultiAdapter struct {
	gemini       *GeminiAdapter
	openai       *OpenAIAdapter
	defaultModel string
}

func NewMultiAdapter(gemini *GeminiAdapter, oa *OpenAIAdapter, defaultModel string) (*MultiAdapter, error) {
	if gemini == nil && oa == nil {
		return nil, fmt.Errorf("multi adapter: no provider configured")
	}
	return &MultiAdapter{gemini: gemini, openai: oa, defaultModel: defaultModel}, nil
}

func (m *MultiAdapter) Provider() string { return "multi" }

// ProviderFor reports which provider a model id routes to.
func (m *MultiAdapter) ProviderFor(model string) string {
	model = modelOrDefault(model, m.defaultModel)
	switch {
	case strings.HasPrefix(model, "gemini"):
		return "gemini"
	case strings.HasPrefix(model, "gpt"), strings.HasPrefix(model, "o"):
		return "openai"
	}
	if m.gemini != nil {
		return "gemini"
	}
	return "openai"
}

func (m *MultiAdapter) StartChat(ctx context.Context, model string, tools []adapter.ToolDefinition) (adapter.ChatSession, error) {
	model = modelOrDefault(model, m.defaultModel)
	switch m.ProviderFor(model) {
	case "gemini":
		if m.gemini == nil {
			return nil, fmt.Errorf("model %q needs gemini but no gemini key is configured", model)
		}
		return m.gemini.StartChat(ctx, model, tools)
	default:
		if m.openai == nil {
			return nil, fmt.Errorf("model %q needs openai but no openai key is configured", model)
		}
		return m.openai.StartChat(ctx, model, tools)
	}
}
