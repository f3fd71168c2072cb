// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"sprint-estimator/internal/domain/ports/adapter"
)

var _ adapter.ConversationalAI = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, defaultModel string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, defaultModel: defaultModel}, nil
}

func (g *GeminiAdapter) Provider() string { return "gemini" }

func (g *GeminiAdapter) StartChat(ctx context.Context, model string, tools []adapter.ToolDefinition) (adapter.ChatSession, error) {
	cfg := &genai.GenerateContentConfig{}
	if len(tools) > 0 {
		cfg.Tools = []*genai.Tool{
			{FunctionDeclarations: toGeminiDeclarations(tools)},
		}
	}
	chat, err := g.client.Chats.Create(ctx, modelOrDefault(model, g.defaultModel), cfg, nil)
	if err != nil {
		return nil, err
	}
	return &geminiSession{chat: chat}, nil
}

type geminiSession struct {
	chat *genai.Chat
}

func (s *geminiSession) SendText(ctx context.Context, text string) (*adapter.ModelReply, error) {
	resp, err := s.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return nil, Classify(err)
	}
	return fromGeminiResponse(resp), nil
}

func (s *geminiSession) SendToolResults(ctx context.Context, results []adapter.ToolResult) (*adapter.ModelReply, error) {
	parts := make([]genai.Part, 0, len(results))
	for _, r := range results {
		response := map[string]any{"result": r.Payload}
		if r.Err != "" {
			response = map[string]any{"error": r.Err}
		}
		parts = append(parts, genai.Part{
			FunctionResponse: &genai.FunctionResponse{
				ID:       r.ID,
				Name:     r.Name,
				Response: response,
			},
		})
	}
	resp, err := s.chat.SendMessage(ctx, parts...)
	if err != nil {
		return nil, Classify(err)
	}
	return fromGeminiResponse(resp), nil
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) *adapter.ModelReply {
	reply := &adapter.ModelReply{}
	if resp == nil {
		return reply
	}
	reply.Text = resp.Text()
	for _, fc := range resp.FunctionCalls() {
		reply.ToolCalls = append(reply.ToolCalls, adapter.ToolCall{
			ID:   fc.ID,
			Name: fc.Name,
			Args: fc.Args,
		})
	}
	return reply
}

func toGeminiDeclarations(tools []adapter.ToolDefinition) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		props := make(map[string]*genai.Schema, len(t.Schema.Properties))
		for name, p := range t.Schema.Properties {
			props[name] = &genai.Schema{
				Type:        geminiType(p.Type),
				Description: p.Description,
			}
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   t.Schema.Required,
			},
		})
	}
	return out
}

func geminiType(t string) genai.Type {
	switch t {
	case "number", "integer":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return def
}
