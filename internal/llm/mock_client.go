package llm

import (
	"context"

	"github.com/alphaarc/platform/internal/domain"
)

// MockClient is a deterministic Client implementation for tests and for
// running the pipeline without provider credentials. It echoes the last user
// message back as the assistant response.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ Client = (*MockClient)(nil)

// CreateChatCompletion echoes the last user message.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var lastUser string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			lastUser = req.Messages[i].Content
			break
		}
	}
	if lastUser == "" {
		lastUser = "This is a mock response."
	}

	prompt := 0
	for _, msg := range req.Messages {
		prompt += len(msg.Content) / 4
	}

	return &ChatResponse{
		Message:      ChatMessage{Role: RoleAssistant, Content: lastUser},
		FinishReason: "stop",
		Usage: Usage{
			PromptTokens:     prompt,
			CompletionTokens: len(lastUser) / 4,
			TotalTokens:      prompt + len(lastUser)/4,
		},
	}, nil
}

// ListModels returns a fixed mock catalog.
func (m *MockClient) ListModels(ctx context.Context) ([]domain.Model, error) {
	return []domain.Model{
		{Name: "mock-gpt-4", Model: "mock-gpt-4", Status: "available"},
		{Name: "mock-claude", Model: "mock-claude", Status: "available"},
	}, nil
}
