package domain

import "time"

// LogType tags a LogEvent and determines how consumers route its payload.
type LogType string

const (
	LogTypeInfo    LogType = "INFO"
	LogTypeSuccess LogType = "SUCCESS"
	LogTypeError   LogType = "ERROR"
	LogTypeWarn    LogType = "WARN"
	LogTypePrompt  LogType = "PROMPT"
	LogTypeResult  LogType = "RESULT"
	LogTypeTrace   LogType = "TRACE"
)

// IsLogLine reports whether the type belongs to the scrolling-log category
// (as opposed to PROMPT/RESULT/TRACE which carry structured payloads).
func (t LogType) IsLogLine() bool {
	switch t {
	case LogTypeInfo, LogTypeSuccess, LogTypeError, LogTypeWarn:
		return true
	}
	return false
}

// LogEvent is one structured record in a run's output stream. Events are
// serialized as newline-delimited JSON in emission order; they have no
// existence beyond the stream.
type LogEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      LogType   `json:"type"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
}

// ChildLogRecord is one record emitted by an external runtime process on its
// stdout, framed by the ":log:\n" delimiter.
type ChildLogRecord struct {
	LogType string `json:"log_type"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}
