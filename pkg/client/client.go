// Package client is the Go consumer for the platform's streaming run API.
// It decodes the newline-delimited event stream incrementally and offers a
// UI-style aggregate of a finished run.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// LogType tags an event and determines how consumers route its payload.
type LogType string

// Event types emitted by a run.
const (
	LogTypeInfo    LogType = "INFO"
	LogTypeSuccess LogType = "SUCCESS"
	LogTypeError   LogType = "ERROR"
	LogTypeWarn    LogType = "WARN"
	LogTypePrompt  LogType = "PROMPT"
	LogTypeResult  LogType = "RESULT"
	LogTypeTrace   LogType = "TRACE"
)

// Event is one decoded record from a run's stream.
type Event struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      LogType         `json:"type"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Client talks to a platform server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The default has no
// timeout, because a run stream legitimately stays open for minutes.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAgent starts a run from a full agent config and returns the live event
// stream. config may be any JSON-marshalable value shaped like the agent
// config schema.
func (c *Client) RunAgent(ctx context.Context, config any) (*Stream, error) {
	return c.startRun(ctx, c.baseURL+"/rpc/agents/run", config)
}

// RunStoredAgent starts a run for an agent stored on the server.
func (c *Client) RunStoredAgent(ctx context.Context, agentID string, body any) (*Stream, error) {
	return c.startRun(ctx, c.baseURL+"/rpc/agents/"+agentID+"/run", body)
}

func (c *Client) startRun(ctx context.Context, url string, body any) (*Stream, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		var serverErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &serverErr) == nil && serverErr.Error != "" {
			return nil, fmt.Errorf("run rejected: %s", serverErr.Error)
		}
		return nil, fmt.Errorf("run rejected: http %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	// TRACE events carry full message histories and can be large.
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)

	return &Stream{
		RunID:   resp.Header.Get("X-Run-Id"),
		body:    resp.Body,
		scanner: scanner,
	}, nil
}

// Stream is a live run event stream.
type Stream struct {
	RunID string

	body    io.ReadCloser
	scanner *bufio.Scanner
}

// Next returns the next event, or io.EOF once the run's stream has closed.
// Lines that are not valid events are skipped.
func (s *Stream) Next() (*Event, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil || ev.Type == "" {
			continue
		}
		return &ev, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close releases the underlying connection. Closing mid-run disconnects the
// consumer; the server lets the run finish internally.
func (s *Stream) Close() error {
	return s.body.Close()
}

// RunState is the aggregate view a UI would hold after applying a run's
// events in order.
type RunState struct {
	Logs     []Event         // scrolling log lines: INFO, SUCCESS, ERROR, WARN
	Prompt   string          // last PROMPT, verbatim
	Messages json.RawMessage // last TRACE payload: the full message history
	Result   json.RawMessage // last RESULT payload
	Failed   bool            // true once any ERROR was seen
}

// Apply folds one event into the state.
func (st *RunState) Apply(ev *Event) {
	switch ev.Type {
	case LogTypePrompt:
		st.Prompt = ev.Message
	case LogTypeTrace:
		st.Messages = ev.Data
	case LogTypeResult:
		st.Result = ev.Data
	default:
		if ev.Type == LogTypeError {
			st.Failed = true
		}
		st.Logs = append(st.Logs, *ev)
	}
}

// Consume drains the stream to EOF and returns the final aggregate state.
// The stream is closed on return.
func (s *Stream) Consume() (*RunState, error) {
	defer s.Close()

	st := &RunState{}
	for {
		ev, err := s.Next()
		if err == io.EOF {
			return st, nil
		}
		if err != nil {
			return st, err
		}
		st.Apply(ev)
	}
}
