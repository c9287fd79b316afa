package llm

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alphaarc/platform/internal/domain"
)

// OpenAIClient implements Client against the OpenAI chat completion API.
type OpenAIClient struct {
	sdk  *openai.Client
	spec domain.LLMSpec
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client using the credential from the agent config.
func NewOpenAIClient(spec domain.LLMSpec) *OpenAIClient {
	return &OpenAIClient{
		sdk:  openai.NewClient(spec.APIKey),
		spec: spec,
	}
}

// CreateChatCompletion sends a non-streaming chat completion request.
func (c *OpenAIClient) CreateChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	params := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: buildOpenAIMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		params.Temperature = *req.Temperature
	}
	for _, t := range req.Tools {
		params.Tools = append(params.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	resp, err := c.sdk.CreateChatCompletion(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat completion: no choices returned")
	}

	choice := resp.Choices[0]
	msg := ChatMessage{
		Role:    RoleAssistant,
		Content: choice.Message.Content,
	}
	for _, tc := range choice.Message.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}

	return &ChatResponse{
		Message:      msg,
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// ListModels retrieves the models visible to the configured credential.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]domain.Model, error) {
	resp, err := c.sdk.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai list models: %w", err)
	}
	models := make([]domain.Model, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, domain.Model{
			Name:   m.ID,
			Model:  m.ID,
			Status: "available",
		})
	}
	return models, nil
}

// buildOpenAIMessages converts unified messages to OpenAI's format. A
// RoleTool message becomes a "tool" message answering its ToolCallID.
func buildOpenAIMessages(msgs []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		om := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		out = append(out, om)
	}
	return out
}
