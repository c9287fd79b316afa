package runtime

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alphaarc/platform/internal/domain"
	"github.com/alphaarc/platform/internal/remotelog"
)

type failingRuntime struct{ err error }

func (f *failingRuntime) Run(ctx context.Context, env *Environment) error { return f.err }

type panickingRuntime struct{}

func (p *panickingRuntime) Run(ctx context.Context, env *Environment) error {
	panic("boom")
}

type okRuntime struct{}

func (o *okRuntime) Run(ctx context.Context, env *Environment) error {
	env.Logger.Log(domain.LogTypeSuccess, "done")
	return nil
}

func collectManagerRun(t *testing.T, m *Manager, env *Environment) []domain.LogEvent {
	t.Helper()

	logger := remotelog.New()
	env.Logger = logger

	done := make(chan []domain.LogEvent, 1)
	go func() {
		var events []domain.LogEvent
		scanner := bufio.NewScanner(logger.Reader())
		for scanner.Scan() {
			var ev domain.LogEvent
			if err := json.Unmarshal(scanner.Bytes(), &ev); err == nil {
				events = append(events, ev)
			}
		}
		done <- events
	}()

	m.RunAgent(context.Background(), env)
	logger.Close()
	return <-done
}

func managerEnv() *Environment {
	cfg := &domain.AgentConfig{}
	cfg.Info.Name = "failer"
	return &Environment{Config: cfg}
}

func TestManagerReportsRuntimeErrorGenerically(t *testing.T) {
	m := NewManager(Selection{Kind: KindNative}, nil, zap.NewNop(),
		WithRuntime(KindNative, &failingRuntime{err: errors.New("provider quota exhausted for key sk-123")}))

	events := collectManagerRun(t, m, managerEnv())

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, domain.LogTypeError, last.Type)
	assert.Equal(t, "Agent run failed due to an internal error.", last.Message)

	// Internal detail must never leak onto the stream.
	for _, ev := range events {
		assert.NotContains(t, ev.Message, "sk-123")
		assert.NotContains(t, ev.Message, "quota")
	}
	assert.Equal(t, 1, countType(events, domain.LogTypeError))
}

func TestManagerRecoversFromPanic(t *testing.T) {
	m := NewManager(Selection{Kind: KindNative}, nil, zap.NewNop(),
		WithRuntime(KindNative, &panickingRuntime{}))

	events := collectManagerRun(t, m, managerEnv())

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, domain.LogTypeError, last.Type)
	assert.Equal(t, "Agent run failed due to an internal error.", last.Message)
}

func TestManagerUnknownKind(t *testing.T) {
	m := NewManager(Selection{Kind: Kind("jvm")}, nil, zap.NewNop(),
		WithRuntime(KindNative, &okRuntime{}))

	events := collectManagerRun(t, m, managerEnv())

	require.Len(t, events, 1)
	assert.Equal(t, domain.LogTypeError, events[0].Type)
}

func TestManagerAnnouncesRun(t *testing.T) {
	m := NewManager(Selection{Kind: KindNative}, nil, zap.NewNop(),
		WithRuntime(KindNative, &okRuntime{}))

	events := collectManagerRun(t, m, managerEnv())

	require.Len(t, events, 2)
	assert.Equal(t, domain.LogTypeInfo, events[0].Type)
	assert.Contains(t, events[0].Message, `"failer"`)
	assert.Contains(t, events[0].Message, "native runtime")
	assert.Equal(t, domain.LogTypeSuccess, events[1].Type)
}
