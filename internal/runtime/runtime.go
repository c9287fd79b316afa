// Package runtime provides the pluggable execution backends for agent runs
// and the manager that dispatches between them.
package runtime

import (
	"context"

	"github.com/alphaarc/platform/internal/domain"
	"github.com/alphaarc/platform/internal/remotelog"
	"github.com/alphaarc/platform/internal/sdk"
)

// Kind identifies an execution backend.
type Kind string

const (
	// KindNative runs the agent loop in-process.
	KindNative Kind = "native"
	// KindBinary delegates execution to an external executable.
	KindBinary Kind = "binary"
)

// Selection is the resolved choice of backend plus its launch parameters.
// It is derived once from process configuration and never changes.
type Selection struct {
	Kind       Kind
	BinaryPath string
}

// Environment is everything a runtime needs for one run. The config is
// immutable for the duration of the run.
type Environment struct {
	Config    *domain.AgentConfig
	Overrides *domain.RunOverrides
	Logger    *remotelog.Logger
	SDK       *sdk.Client
}

// Runtime executes one agent run, emitting progress through env.Logger.
//
// Anticipated, config-level failures (missing time window, bad query) are
// reported by the runtime itself as ERROR events with a nil return;
// returning a non-nil error means an unanticipated failure that the manager
// reports generically.
type Runtime interface {
	Run(ctx context.Context, env *Environment) error
}
