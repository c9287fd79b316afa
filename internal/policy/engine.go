// Package policy gates agent actions with an OPA/rego policy. Every tool
// call an agent makes during a run is evaluated before dispatch.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision values returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine from the given rego module content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.action_policy.decision"),
		rego.Module("action_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Input describes one attempted agent action.
type Input struct {
	Tool  string         `json:"tool"`
	Agent string         `json:"agent"`
	Args  map[string]any `json:"args"`
}

// Evaluate checks the action policy and returns the decision string.
// Policies are expected to define a default, but an empty result is treated
// as allow.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionAllow, nil
}

// DefaultPolicy is the built-in action policy: paper trades above a fixed
// notional ceiling are blocked, everything else is allowed.
const DefaultPolicy = `
package action_policy

default decision = "allow"

decision = "block" {
	input.tool == "buy_token"
	to_number(input.args.amount) > 10000
}
`
