package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background(), DefaultPolicy)
	require.NoError(t, err)
	return engine
}

func TestDefaultPolicyAllowsSmallTrade(t *testing.T) {
	engine := newTestEngine(t)

	decision, err := engine.Evaluate(context.Background(), Input{
		Tool:  "buy_token",
		Agent: "momentum-bot",
		Args:  map[string]any{"token": "SOL", "amount": "250"},
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)
}

func TestDefaultPolicyBlocksOversizedTrade(t *testing.T) {
	engine := newTestEngine(t)

	decision, err := engine.Evaluate(context.Background(), Input{
		Tool:  "buy_token",
		Agent: "momentum-bot",
		Args:  map[string]any{"token": "SOL", "amount": "50000"},
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision)
}

func TestDefaultPolicyIgnoresOtherTools(t *testing.T) {
	engine := newTestEngine(t)

	decision, err := engine.Evaluate(context.Background(), Input{
		Tool:  "post_tweet",
		Agent: "momentum-bot",
		Args:  map[string]any{"amount": "999999"},
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)
}

func TestNewEngineRejectsBadPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "this is not rego")
	require.Error(t, err)
}
