package runtime

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/alphaarc/platform/internal/domain"
)

// genericFailureMessage is what clients see for any unanticipated runtime
// failure. Internal details go to the process log only, never the stream.
const genericFailureMessage = "Agent run failed due to an internal error."

// Manager selects the execution backend and presents identical obligations
// to both: anything escaping an adapter — error or panic — becomes one
// generic ERROR event on the run's stream. The manager never propagates a
// failure to its caller, and it never retries; a failed run is terminal.
type Manager struct {
	sel      Selection
	runtimes map[Kind]Runtime
	log      *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRuntime replaces the runtime registered for a kind. Test hook.
func WithRuntime(kind Kind, rt Runtime) ManagerOption {
	return func(m *Manager) { m.runtimes[kind] = rt }
}

// NewManager creates a Manager for the given selection. The native runtime
// is always available; the binary runtime points at the selection's
// executable path.
func NewManager(sel Selection, native *NativeRuntime, log *zap.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		sel: sel,
		runtimes: map[Kind]Runtime{
			KindNative: native,
			KindBinary: NewBinaryRuntime(sel.BinaryPath),
		},
		log: log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Kind returns the selected backend kind.
func (m *Manager) Kind() Kind { return m.sel.Kind }

// RunAgent dispatches one run to the selected backend inside the failure
// boundary. It blocks until the run settles.
func (m *Manager) RunAgent(ctx context.Context, env *Environment) {
	logger := env.Logger

	defer func() {
		if rec := recover(); rec != nil {
			m.log.Error("runtime panicked",
				zap.String("agent", env.Config.Info.Name),
				zap.Any("panic", rec))
			logger.Log(domain.LogTypeError, genericFailureMessage)
		}
	}()

	rt, ok := m.runtimes[m.sel.Kind]
	if !ok {
		m.log.Error("no runtime registered", zap.String("kind", string(m.sel.Kind)))
		logger.Log(domain.LogTypeError, genericFailureMessage)
		return
	}

	logger.Log(domain.LogTypeInfo,
		fmt.Sprintf("Running agent %q with %s runtime", env.Config.Info.Name, m.sel.Kind))

	if err := rt.Run(ctx, env); err != nil {
		m.log.Error("agent run failed",
			zap.String("agent", env.Config.Info.Name),
			zap.String("kind", string(m.sel.Kind)),
			zap.Error(err))
		logger.Log(domain.LogTypeError, genericFailureMessage)
	}
}
