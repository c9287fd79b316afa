package llm

import (
	"fmt"
	"os"

	"github.com/alphaarc/platform/internal/domain"
)

const (
	// EnvArcMode is the environment variable name for mode selection.
	EnvArcMode = "ARC_MODE"
	// ModeMock indicates the mock client should be used regardless of provider.
	ModeMock = "MOCK"
)

// New constructs a Client for the given model spec. With ARC_MODE=MOCK a
// MockClient is returned regardless of provider, so the whole pipeline can
// run without external credentials.
func New(spec domain.LLMSpec) (Client, error) {
	if os.Getenv(EnvArcMode) == ModeMock {
		return NewMockClient(), nil
	}

	switch spec.Provider {
	case "openai":
		return NewOpenAIClient(spec), nil
	case "anthropic":
		return NewAnthropicClient(spec), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", spec.Provider)
	}
}
