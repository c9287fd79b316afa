package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/alphaarc/platform/internal/domain"
	"github.com/alphaarc/platform/internal/remotelog"
)

// BinaryRuntime delegates execution to an external, independently-versioned
// executable. The protocol is one-shot: the full AgentConfig as a single
// JSON document on stdin, delimiter-framed log records on stdout, free text
// on stderr.
type BinaryRuntime struct {
	path string
}

// NewBinaryRuntime creates the out-of-process runtime for the given
// executable path.
func NewBinaryRuntime(path string) *BinaryRuntime {
	return &BinaryRuntime{path: path}
}

var _ Runtime = (*BinaryRuntime)(nil)

// Run spawns the child and bridges its output to the run's log stream. The
// child inherits ctx: when the server shuts down, ctx is cancelled and the
// child is signal-killed, so no orphans survive the parent. Spawn and stdin
// failures degrade to ERROR events, never a crash.
func (r *BinaryRuntime) Run(ctx context.Context, env *Environment) error {
	logger := env.Logger

	cmd := exec.CommandContext(ctx, r.path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		logger.Log(domain.LogTypeError, "Failed to open stdin")
		return nil
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		logger.Log(domain.LogTypeError, "Failed to open stdout")
		return nil
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		logger.Log(domain.LogTypeError, "Failed to open stderr")
		return nil
	}

	if err := cmd.Start(); err != nil {
		logger.Log(domain.LogTypeError, fmt.Sprintf("Failed to start agent process: %v", err))
		return nil
	}

	// The child must not block waiting for more input: write the whole
	// config, then close stdin.
	if err := writeConfig(stdin, env.Config); err != nil {
		logger.Log(domain.LogTypeError, "Failed to write config to stdin")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		relayStderr(stderr, logger)
	}()

	relayStdout(stdout, logger)
	wg.Wait()

	code := 0
	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			logger.Log(domain.LogTypeError, fmt.Sprintf("Agent process error: %v", err))
			return nil
		}
	}
	logger.Log(domain.LogTypeInfo, fmt.Sprintf("Agent process exited with code %d", code))
	return nil
}

func writeConfig(stdin io.WriteCloser, cfg *domain.AgentConfig) error {
	defer stdin.Close()
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = stdin.Write(payload)
	return err
}

// relayStdout reassembles delimiter-framed records and re-emits them through
// the shared logger. An unparseable segment is surfaced as a raw INFO line
// rather than dropped.
func relayStdout(stdout io.Reader, logger *remotelog.Logger) {
	var splitter RecordSplitter
	buf := make([]byte, 4096)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			for _, record := range splitter.Feed(buf[:n]) {
				emitRecord(record, logger)
			}
		}
		if err != nil {
			return
		}
	}
}

func emitRecord(record string, logger *remotelog.Logger) {
	if strings.TrimSpace(record) == "" {
		return
	}
	var rec domain.ChildLogRecord
	if err := json.Unmarshal([]byte(record), &rec); err != nil || rec.LogType == "" {
		logger.Log(domain.LogTypeInfo, record)
		return
	}
	logger.LogData(domain.LogType(rec.LogType), rec.Message, rec.Data)
}

// relayStderr emits everything the child writes to stderr as ERROR events.
func relayStderr(stderr io.Reader, logger *remotelog.Logger) {
	buf := make([]byte, 4096)
	for {
		n, err := stderr.Read(buf)
		if n > 0 {
			logger.Log(domain.LogTypeError, string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}
