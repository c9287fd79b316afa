package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alphaarc/platform/internal/domain"
	"github.com/alphaarc/platform/internal/llm"
	"github.com/alphaarc/platform/internal/policy"
	"github.com/alphaarc/platform/internal/tools"
)

// maxAgentSteps bounds the model/tool loop. A hard ceiling, not
// user-configurable: it is the only defense against runaway tool-call loops.
const maxAgentSteps = 2

// NativeRuntime drives a single-pass LLM agent loop in-process.
type NativeRuntime struct {
	policy     *policy.Engine
	newClient  func(spec domain.LLMSpec) (llm.Client, error)
	paperTrade bool
}

// NativeOption configures a NativeRuntime.
type NativeOption func(*NativeRuntime)

// WithClientFactory overrides how model clients are constructed. Test hook.
func WithClientFactory(f func(spec domain.LLMSpec) (llm.Client, error)) NativeOption {
	return func(r *NativeRuntime) { r.newClient = f }
}

// NewNativeRuntime creates the in-process runtime. The policy engine may be
// nil, in which case all actions are allowed.
func NewNativeRuntime(policyEngine *policy.Engine, opts ...NativeOption) *NativeRuntime {
	r := &NativeRuntime{
		policy:    policyEngine,
		newClient: llm.New,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ Runtime = (*NativeRuntime)(nil)

// Run executes the linear state machine: INIT, AUTH, FETCH, PROMPT-BUILD,
// INVOKE, RESULT. Config-level failures abort before the model is invoked.
func (r *NativeRuntime) Run(ctx context.Context, env *Environment) error {
	cfg := env.Config
	logger := env.Logger

	// INIT
	logger.Log(domain.LogTypeInfo, "Initializing agent...")
	client, err := r.newClient(cfg.LLM)
	if err != nil {
		logger.Log(domain.LogTypeError, fmt.Sprintf("Invalid model configuration: %v", err))
		return nil
	}
	registry := tools.NewRegistry()
	if cfg.ToolEnabled("paperTrading") && env.SDK != nil {
		if err := registry.Register(tools.NewBuyTokenTool(env.SDK)); err != nil {
			return fmt.Errorf("register buy_token: %w", err)
		}
	}

	// AUTH — failure here degrades the run, it does not abort it.
	if env.SDK != nil && !env.SDK.IsLoggedIn() {
		if err := env.SDK.Login(ctx); err != nil {
			logger.Log(domain.LogTypeError, "Data API login failed; continuing without data access.")
		} else {
			logger.Log(domain.LogTypeInfo, "Authenticated with data API.")
		}
	} else {
		logger.Log(domain.LogTypeInfo, "Agent initialized.")
	}

	// FETCH — config problems here are fatal; abort before the model is
	// invoked so an invalid setup never burns LLM cost.
	var fetched json.RawMessage
	if cfg.Data.UserQuery != "" {
		interval, err := resolveInterval(cfg.Data.TimeRange)
		if err != nil {
			logger.Log(domain.LogTypeError, fmt.Sprintf("Invalid data query configuration: %v", err))
			return nil
		}
		if env.SDK == nil {
			logger.Log(domain.LogTypeError, "Data query failed: no data client available.")
			return nil
		}
		logger.Log(domain.LogTypeInfo, "Fetching data...")
		res, err := env.SDK.Query(ctx, cfg.Data.UserQuery, interval)
		if err != nil {
			logger.Log(domain.LogTypeError, fmt.Sprintf("Data query failed: %v", err))
			return nil
		}
		if res.Error != "" {
			logger.Log(domain.LogTypeError, fmt.Sprintf("Data query failed: %s", res.Error))
			return nil
		}
		fetched = res.Data
		logger.Log(domain.LogTypeSuccess, "Data fetched.")
	}

	// PROMPT-BUILD — the PROMPT event carries the exact string sent to the
	// model; the UI depends on it verbatim.
	prompt := buildPrompt(cfg, fetched)
	logger.Log(domain.LogTypePrompt, prompt)

	// INVOKE
	logger.Log(domain.LogTypeInfo, "Invoking agent...")
	messages := []llm.ChatMessage{{Role: llm.RoleUser, Content: prompt}}
	if env.Overrides != nil && env.Overrides.UserMessage != "" {
		messages = append(messages, llm.ChatMessage{Role: llm.RoleUser, Content: env.Overrides.UserMessage})
	}

	final, trace, err := r.invoke(ctx, env, client, registry, messages)
	if err != nil {
		return err
	}
	logger.LogData(domain.LogTypeTrace, "", trace)

	// RESULT
	logger.LogData(domain.LogTypeResult, "Agent execution completed", final)
	logger.Log(domain.LogTypeSuccess, "Agent run complete.")
	return nil
}

// invoke runs the bounded model/tool loop and returns the final assistant
// content plus the full message history for the TRACE event.
func (r *NativeRuntime) invoke(
	ctx context.Context,
	env *Environment,
	client llm.Client,
	registry *tools.Registry,
	messages []llm.ChatMessage,
) (string, []llm.ChatMessage, error) {
	cfg := env.Config
	defs := registry.Definitions()

	var final string
	for step := 0; step < maxAgentSteps; step++ {
		resp, err := client.CreateChatCompletion(ctx, &llm.ChatRequest{
			Model:       cfg.LLM.Model,
			Messages:    messages,
			Tools:       defs,
			Temperature: cfg.LLM.Temperature,
		})
		if err != nil {
			return "", nil, fmt.Errorf("agent invocation failed: %w", err)
		}

		messages = append(messages, resp.Message)
		if resp.Message.Content != "" {
			final = resp.Message.Content
		}
		if len(resp.Message.ToolCalls) == 0 {
			break
		}
		for _, tc := range resp.Message.ToolCalls {
			messages = append(messages, r.dispatchTool(ctx, env, registry, tc))
		}
	}
	return final, messages, nil
}

// dispatchTool evaluates the action policy and executes one tool call. Tool
// failures are fed back to the model, never escalated.
func (r *NativeRuntime) dispatchTool(
	ctx context.Context,
	env *Environment,
	registry *tools.Registry,
	tc llm.ToolCall,
) llm.ChatMessage {
	logger := env.Logger

	if r.policy != nil {
		var args map[string]any
		_ = json.Unmarshal(tc.Arguments, &args)
		decision, err := r.policy.Evaluate(ctx, policy.Input{
			Tool:  tc.Name,
			Agent: env.Config.Info.Name,
			Args:  args,
		})
		if err != nil || decision != policy.DecisionAllow {
			logger.Log(domain.LogTypeWarn, fmt.Sprintf("Action %s blocked by policy.", tc.Name))
			return llm.ChatMessage{
				Role:       llm.RoleTool,
				ToolCallID: tc.ID,
				Content:    "action blocked by policy",
			}
		}
	}

	logger.Log(domain.LogTypeInfo, fmt.Sprintf("Executing action %s...", tc.Name))
	result, err := registry.Execute(ctx, tc.Name, tc.Arguments)
	if err != nil {
		logger.Log(domain.LogTypeWarn, fmt.Sprintf("Action %s failed: %v", tc.Name, err))
		return llm.ChatMessage{
			Role:       llm.RoleTool,
			ToolCallID: tc.ID,
			Content:    fmt.Sprintf("action failed: %v", err),
		}
	}
	return llm.ChatMessage{
		Role:       llm.RoleTool,
		ToolCallID: tc.ID,
		Content:    string(result),
	}
}

// resolveInterval extracts the sliding-window parameters a data query needs.
func resolveInterval(tr domain.TimeRange) (domain.TimeInterval, error) {
	if tr.Sliding == nil {
		return domain.TimeInterval{}, fmt.Errorf("a sliding time range is required")
	}
	if tr.Sliding.Minutes == 0 {
		return domain.TimeInterval{}, fmt.Errorf("sliding window minutes is required")
	}
	if tr.Sliding.StartBacktest == "" {
		return domain.TimeInterval{}, fmt.Errorf("backtest start instant is required")
	}
	return domain.TimeInterval{
		Minutes:       tr.Sliding.Minutes,
		StartBacktest: tr.Sliding.StartBacktest,
	}, nil
}

// buildPrompt concatenates the character definition, the task definition and
// a fenced JSON block of fetched data when present.
func buildPrompt(cfg *domain.AgentConfig, fetched json.RawMessage) string {
	prompt := cfg.Info.Character + "\n" + cfg.Info.Task
	if len(fetched) > 0 {
		prompt += "\n```json\n" + string(fetched) + "\n```"
	}
	return prompt
}
