// Package tools provides the fixed set of actions available to agents.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/alphaarc/platform/internal/llm"
)

// ExecutorFunc runs a tool with its raw JSON arguments.
type ExecutorFunc func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Tool couples a definition (shown to the model) with its executor.
type Tool struct {
	Definition llm.ToolDefinition
	Execute    ExecutorFunc
}

// Registry stores the tools available to one run.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering the same name twice is an error.
func (r *Registry) Register(t Tool) error {
	if t.Definition.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Execute == nil {
		return fmt.Errorf("executor is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Definition.Name]; exists {
		return fmt.Errorf("tool already registered: %s", t.Definition.Name)
	}
	r.tools[t.Definition.Name] = t
	return nil
}

// Definitions returns the tool definitions for the model.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition)
	}
	return defs
}

// Execute runs the named tool.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no tool registered for %s", name)
	}
	return t.Execute(ctx, args)
}
