// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/alphaarc/platform/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Agent config operations
	SaveAgent(ctx context.Context, cfg *domain.AgentConfig) error
	GetAgent(ctx context.Context, agentID string) (*domain.AgentConfig, error)
	ListAgents(ctx context.Context) ([]domain.AgentConfig, error)
	ListDeployedAgents(ctx context.Context) ([]domain.AgentConfig, error)
	DeleteAgent(ctx context.Context, agentID string) error

	// Run operations
	CreateRun(ctx context.Context, run *domain.RunRecord) error
	GetRun(ctx context.Context, runID string) (*domain.RunRecord, error)
	ListRuns(ctx context.Context, agentID string, limit int) ([]domain.RunRecord, error)
	UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus) error

	// Lifecycle
	Close() error
}
