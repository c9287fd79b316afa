// Command arc-agent is the out-of-process agent runtime. It reads one
// AgentConfig as JSON on stdin, runs the agent loop, and emits
// delimiter-framed log records on stdout for the platform to relay.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alphaarc/platform/internal/domain"
	"github.com/alphaarc/platform/internal/llm"
	"github.com/alphaarc/platform/internal/runtime"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// emit writes one framed record to stdout. Stdout is the wire; any free-form
// output would corrupt framing, so everything goes through here.
func emit(logType domain.LogType, message string, data any) {
	record := domain.ChildLogRecord{
		LogType: string(logType),
		Message: message,
		Data:    data,
	}
	line, err := json.Marshal(record)
	if err != nil {
		record.Data = nil
		line, _ = json.Marshal(record)
	}
	os.Stdout.Write(append(line, []byte(runtime.RecordDelimiter)...))
}

func run() error {
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var cfg domain.AgentConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	emit(domain.LogTypeInfo, fmt.Sprintf("Initializing agent %q...", cfg.Info.Name), nil)

	client, err := llm.New(cfg.LLM)
	if err != nil {
		emit(domain.LogTypeError, fmt.Sprintf("Invalid model configuration: %v", err), nil)
		return nil
	}

	prompt := cfg.Info.Character + "\n" + cfg.Info.Task
	emit(domain.LogTypePrompt, prompt, nil)

	emit(domain.LogTypeInfo, "Invoking agent...", nil)
	resp, err := client.CreateChatCompletion(ctx, &llm.ChatRequest{
		Model:       cfg.LLM.Model,
		Messages:    []llm.ChatMessage{{Role: llm.RoleUser, Content: prompt}},
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		return fmt.Errorf("agent invocation failed: %w", err)
	}

	emit(domain.LogTypeResult, "Agent execution completed", resp.Message.Content)
	emit(domain.LogTypeSuccess, "Agent run complete.", nil)
	return nil
}
