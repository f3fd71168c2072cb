// File: internal/infra/adapters/ai/openai_adapter.go
package ai

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"sprint-estimator/internal/domain/ports/adapter"
)

var _ adapter.ConversationalAI = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements tool-enabled chat over the Chat Completions API.
// Sessions are stateful: the full message history is resent on every turn.
type OpenAIAdapter struct {
	client       openai.Client
	defaultModel string
}

func NewOpenAIAdapter(apiKey, defaultModel string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai: empty api key")
	}
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		client:       openai.NewClient(option.WithAPIKey(apiKey)),
		defaultModel: defaultModel,
	}, nil
}

func (o *OpenAIAdapter) Provider() string { return "openai" }

func (o *OpenAIAdapter) StartChat(ctx context.Context, model string, tools []adapter.ToolDefinition) (adapter.ChatSession, error) {
	return &openaiSession{
		client: o.client,
		model:  modelOrDefault(model, o.defaultModel),
		tools:  toOpenAITools(tools),
	}, nil
}

type openaiSession struct {
	client  openai.Client
	model   string
	tools   []openai.ChatCompletionToolUnionParam
	history []openai.ChatCompletionMessageParamUnion
}

func (s *openaiSession) SendText(ctx context.Context, text string) (*adapter.ModelReply, error) {
	s.history = append(s.history, openai.UserMessage(text))
	return s.complete(ctx)
}

func (s *openaiSession) SendToolResults(ctx context.Context, results []adapter.ToolResult) (*adapter.ModelReply, error) {
	for _, r := range results {
		payload := map[string]any{"result": r.Payload}
		if r.Err != "" {
			payload = map[string]any{"error": r.Err}
		}
		b, err := json.Marshal(payload)
		if err != nil {
			b = []byte(`{"error":"unencodable tool result"}`)
		}
		s.history = append(s.history, openai.ToolMessage(string(b), r.ID))
	}
	return s.complete(ctx)
}

func (s *openaiSession) complete(ctx context.Context) (*adapter.ModelReply, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(s.model),
		Messages: s.history,
		Tools:    s.tools,
	})
	if err != nil {
		return nil, Classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: no choices in response")
	}
	msg := resp.Choices[0].Message
	s.history = append(s.history, msg.ToParam())

	reply := &adapter.ModelReply{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		reply.ToolCalls = append(reply.ToolCalls, adapter.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return reply, nil
}

func toOpenAITools(tools []adapter.ToolDefinition) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		props := make(map[string]any, len(t.Schema.Properties))
		for name, p := range t.Schema.Properties {
			props[name] = map[string]any{
				"type":        openaiType(p.Type),
				"description": p.Description,
			}
		}
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters: openai.FunctionParameters{
				"type":       "object",
				"properties": props,
				"required":   t.Schema.Required,
			},
		}))
	}
	return out
}

func openaiType(t string) string {
	switch t {
	case "number", "integer", "boolean":
		return t
	default:
		return "string"
	}
}
