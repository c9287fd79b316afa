package llm

import (
	"context"
	"encoding/json"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/alphaarc/platform/internal/domain"
)

const anthropicDefaultMaxTokens = 4096

// AnthropicClient implements Client against the Anthropic messages API.
type AnthropicClient struct {
	sdk  anthropicsdk.Client
	spec domain.LLMSpec
}

var _ Client = (*AnthropicClient)(nil)

// NewAnthropicClient creates a client using the credential from the agent config.
func NewAnthropicClient(spec domain.LLMSpec) *AnthropicClient {
	return &AnthropicClient{
		sdk:  anthropicsdk.NewClient(option.WithAPIKey(spec.APIKey)),
		spec: spec,
	}
}

// CreateChatCompletion sends a non-streaming chat completion request.
func (c *AnthropicClient) CreateChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	maxTokens := int64(anthropicDefaultMaxTokens)
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.Model),
		MaxTokens: maxTokens,
		Messages:  buildAnthropicMessages(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = param.NewOpt(float64(*req.Temperature))
	}
	if system := systemPrompt(req.Messages); system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}
	for _, t := range req.Tools {
		tp := anthropicsdk.ToolParam{
			Name:        t.Name,
			Description: param.NewOpt(t.Description),
			InputSchema: buildInputSchema(t.Parameters),
		}
		params.Tools = append(params.Tools, anthropicsdk.ToolUnionParam{OfTool: &tp})
	}

	msg, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic message: %w", err)
	}

	out := ChatMessage{Role: RoleAssistant}
	for _, b := range msg.Content {
		switch b.Type {
		case "text":
			out.Content += b.Text
		case "tool_use":
			raw, _ := json.Marshal(b.Input)
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: raw,
			})
		}
	}

	finish := "stop"
	switch msg.StopReason {
	case anthropicsdk.StopReasonToolUse:
		finish = "tool_calls"
	case anthropicsdk.StopReasonMaxTokens:
		finish = "length"
	}

	return &ChatResponse{
		Message:      out,
		FinishReason: finish,
		Usage: Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}

// ListModels returns the current Anthropic model catalog. The messages API
// has no discovery endpoint usable with agent-scoped keys, so the list is
// static.
func (c *AnthropicClient) ListModels(ctx context.Context) ([]domain.Model, error) {
	ids := []string{
		"claude-sonnet-4-5",
		"claude-opus-4-5",
		"claude-3-5-haiku-latest",
	}
	models := make([]domain.Model, 0, len(ids))
	for _, id := range ids {
		models = append(models, domain.Model{Name: id, Model: id, Status: "available"})
	}
	return models, nil
}

// buildAnthropicMessages converts unified messages into Anthropic message
// params. System turns are skipped (carried via the System param); RoleTool
// turns become user messages holding a tool_result block.
func buildAnthropicMessages(msgs []ChatMessage) []anthropicsdk.MessageParam {
	out := make([]anthropicsdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			continue
		case RoleUser:
			out = append(out, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(m.Content)))
		case RoleTool:
			out = append(out, anthropicsdk.NewUserMessage(
				anthropicsdk.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		case RoleAssistant:
			blocks := make([]anthropicsdk.ContentBlockParamUnion, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				blocks = append(blocks, anthropicsdk.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input any
				_ = json.Unmarshal(tc.Arguments, &input)
				blocks = append(blocks, anthropicsdk.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			out = append(out, anthropicsdk.NewAssistantMessage(blocks...))
		}
	}
	return out
}

// systemPrompt concatenates any system-role turns.
func systemPrompt(msgs []ChatMessage) string {
	var s string
	for _, m := range msgs {
		if m.Role == RoleSystem {
			s += m.Content
		}
	}
	return s
}

// buildInputSchema converts raw JSON Schema bytes into a ToolInputSchemaParam.
func buildInputSchema(raw json.RawMessage) anthropicsdk.ToolInputSchemaParam {
	schema := anthropicsdk.ToolInputSchemaParam{}
	if len(raw) == 0 {
		return schema
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return schema
	}
	if props, ok := m["properties"]; ok {
		schema.Properties = props
	}
	if req, ok := m["required"].([]any); ok {
		strs := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				strs = append(strs, s)
			}
		}
		schema.Required = strs
	}
	return schema
}
