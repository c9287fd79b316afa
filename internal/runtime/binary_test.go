package runtime

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	goruntime "runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphaarc/platform/internal/domain"
	"github.com/alphaarc/platform/internal/remotelog"
)

// writeScript materializes a child executable for the out-of-process
// protocol tests.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if goruntime.GOOS == "windows" {
		t.Skip("shell-script child processes require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "agent.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func collectBinaryRun(t *testing.T, path string, cfg *domain.AgentConfig) []domain.LogEvent {
	t.Helper()

	logger := remotelog.New()
	done := make(chan []domain.LogEvent, 1)
	go func() {
		var events []domain.LogEvent
		scanner := bufio.NewScanner(logger.Reader())
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			var ev domain.LogEvent
			if err := json.Unmarshal(scanner.Bytes(), &ev); err == nil {
				events = append(events, ev)
			}
		}
		done <- events
	}()

	rt := NewBinaryRuntime(path)
	err := rt.Run(context.Background(), &Environment{Config: cfg, Logger: logger})
	require.NoError(t, err)
	logger.Close()
	return <-done
}

func TestBinaryRunRelaysRecords(t *testing.T) {
	path := writeScript(t, `
cat > /dev/null
printf '{"log_type":"INFO","message":"starting"}:log:\n'
printf '{"log_type":"SUCCESS","message":"done","data":{"n":2}}:log:\n'
`)

	cfg := &domain.AgentConfig{}
	cfg.Info.Name = "child"
	events := collectBinaryRun(t, path, cfg)

	require.Len(t, events, 3)
	assert.Equal(t, domain.LogTypeInfo, events[0].Type)
	assert.Equal(t, "starting", events[0].Message)
	assert.Equal(t, domain.LogTypeSuccess, events[1].Type)
	assert.Equal(t, "done", events[1].Message)
	assert.Equal(t, domain.LogTypeInfo, events[2].Type)
	assert.Contains(t, events[2].Message, "exited with code 0")
}

func TestBinaryRunDeliversConfigAndClosesStdin(t *testing.T) {
	// The child reads stdin to EOF, so this only terminates if stdin is
	// closed after the config is written.
	path := writeScript(t, `
cfg=$(cat)
printf '{"log_type":"INFO","message":"name=%s"}:log:\n' "$(printf '%s' "$cfg" | sed -n 's/.*"name":"\([^"]*\)".*/\1/p')"
`)

	cfg := &domain.AgentConfig{}
	cfg.Info.Name = "stdin-check"
	events := collectBinaryRun(t, path, cfg)

	require.Len(t, events, 2)
	assert.Equal(t, "name=stdin-check", events[0].Message)
}

func TestBinaryRunUnparseableRecordBecomesRawInfo(t *testing.T) {
	path := writeScript(t, `
cat > /dev/null
printf 'free-form progress text:log:\n'
printf '{"message":"no type field"}:log:\n'
`)

	events := collectBinaryRun(t, path, &domain.AgentConfig{})

	require.Len(t, events, 3)
	assert.Equal(t, domain.LogTypeInfo, events[0].Type)
	assert.Equal(t, "free-form progress text", events[0].Message)
	assert.Equal(t, domain.LogTypeInfo, events[1].Type)
	assert.Equal(t, `{"message":"no type field"}`, events[1].Message)
}

func TestBinaryRunTrailingPartialRecordIsDropped(t *testing.T) {
	path := writeScript(t, `
cat > /dev/null
printf '{"log_type":"INFO","message":"kept"}:log:\n'
printf '{"log_type":"INFO","message":"no delimiter"}'
`)

	events := collectBinaryRun(t, path, &domain.AgentConfig{})

	require.Len(t, events, 2)
	assert.Equal(t, "kept", events[0].Message)
	assert.Contains(t, events[1].Message, "exited with code 0")
}

func TestBinaryRunStderrBecomesError(t *testing.T) {
	path := writeScript(t, `
cat > /dev/null
printf 'model credentials rejected' 1>&2
exit 3
`)

	events := collectBinaryRun(t, path, &domain.AgentConfig{})

	require.Len(t, events, 2)
	assert.Equal(t, domain.LogTypeError, events[0].Type)
	assert.Equal(t, "model credentials rejected", events[0].Message)
	assert.Equal(t, domain.LogTypeInfo, events[1].Type)
	assert.Contains(t, events[1].Message, "exited with code 3")
}

func TestBinaryRunMissingExecutable(t *testing.T) {
	events := collectBinaryRun(t, filepath.Join(t.TempDir(), "missing"), &domain.AgentConfig{})

	require.Len(t, events, 1)
	assert.Equal(t, domain.LogTypeError, events[0].Type)
	assert.Contains(t, events[0].Message, "Failed to start agent process")
}

func TestBinaryRunContextCancelKillsChild(t *testing.T) {
	path := writeScript(t, `
cat > /dev/null
printf '{"log_type":"INFO","message":"looping"}:log:\n'
sleep 60
`)

	logger := remotelog.New()
	done := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(logger.Reader())
		for scanner.Scan() {
		}
		close(done)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		rt := NewBinaryRuntime(path)
		_ = rt.Run(ctx, &Environment{Config: &domain.AgentConfig{}, Logger: logger})
		close(finished)
	}()

	cancel()
	<-finished
	logger.Close()
	<-done
}
