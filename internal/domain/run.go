package domain

import "time"

// RunStatus is the lifecycle state of an agent run.
type RunStatus string

const (
	// RunStatusRunning means the run task is still executing.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted means the run finished and its stream closed.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed means the run settled with an internal failure.
	RunStatusFailed RunStatus = "failed"
	// RunStatusAbandoned means the stream consumer went away before the run
	// settled; the run finished its side effects without a stream.
	RunStatusAbandoned RunStatus = "abandoned"
)

// RunRecord is the persisted trace of one agent run.
type RunRecord struct {
	RunID     string     `json:"runId"`
	AgentID   string     `json:"agentId,omitempty"`
	AgentName string     `json:"agentName"`
	Runtime   string     `json:"runtime"`
	Status    RunStatus  `json:"status"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}
