package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alphaarc/platform/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			agent_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			is_deployed INTEGER NOT NULL DEFAULT 0,
			config TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agents_deployed ON agents(is_deployed)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			agent_id TEXT,
			agent_name TEXT NOT NULL,
			runtime TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_agent ON runs(agent_id, started_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveAgent inserts or replaces an agent config. The config is stored as its
// canonical JSON document; name and deployment flag are denormalized for
// listing and scheduling queries.
func (s *SQLiteStore) SaveAgent(ctx context.Context, cfg *domain.AgentConfig) error {
	if cfg.ID == "" {
		return fmt.Errorf("agent id is required")
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode agent config: %w", err)
	}
	deployed := 0
	if cfg.IsDeployed {
		deployed = 1
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agents (agent_id, name, is_deployed, config, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(agent_id) DO UPDATE SET
		   name = excluded.name,
		   is_deployed = excluded.is_deployed,
		   config = excluded.config,
		   updated_at = excluded.updated_at`,
		cfg.ID, cfg.Info.Name, deployed, string(payload), now, now)
	return err
}

// GetAgent retrieves an agent config by ID. Returns nil when not found.
func (s *SQLiteStore) GetAgent(ctx context.Context, agentID string) (*domain.AgentConfig, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT config FROM agents WHERE agent_id = ?`,
		agentID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg domain.AgentConfig
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode agent config: %w", err)
	}
	return &cfg, nil
}

// ListAgents lists all agent configs.
func (s *SQLiteStore) ListAgents(ctx context.Context) ([]domain.AgentConfig, error) {
	return s.listAgents(ctx, `SELECT config FROM agents ORDER BY created_at`)
}

// ListDeployedAgents lists configs of deployed agents only.
func (s *SQLiteStore) ListDeployedAgents(ctx context.Context) ([]domain.AgentConfig, error) {
	return s.listAgents(ctx, `SELECT config FROM agents WHERE is_deployed = 1 ORDER BY created_at`)
}

func (s *SQLiteStore) listAgents(ctx context.Context, query string) ([]domain.AgentConfig, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []domain.AgentConfig
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var cfg domain.AgentConfig
		if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode agent config: %w", err)
		}
		agents = append(agents, cfg)
	}
	return agents, rows.Err()
}

// DeleteAgent removes an agent config.
func (s *SQLiteStore) DeleteAgent(ctx context.Context, agentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE agent_id = ?`, agentID)
	return err
}

// CreateRun creates a new run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.RunRecord) error {
	var agentID sql.NullString
	if run.AgentID != "" {
		agentID = sql.NullString{String: run.AgentID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, agent_id, agent_name, runtime, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, agentID, run.AgentName, run.Runtime, run.Status, run.StartedAt)
	return err
}

// GetRun retrieves a run record by ID. Returns nil when not found.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.RunRecord, error) {
	var run domain.RunRecord
	var agentID sql.NullString
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, agent_id, agent_name, runtime, status, started_at, ended_at FROM runs WHERE run_id = ?`,
		runID).Scan(&run.RunID, &agentID, &run.AgentName, &run.Runtime, &run.Status, &run.StartedAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if agentID.Valid {
		run.AgentID = agentID.String
	}
	if endedAt.Valid {
		run.EndedAt = &endedAt.Time
	}
	return &run, nil
}

// ListRuns lists run records, newest first, optionally scoped to one agent.
func (s *SQLiteStore) ListRuns(ctx context.Context, agentID string, limit int) ([]domain.RunRecord, error) {
	query := `SELECT run_id, agent_id, agent_name, runtime, status, started_at, ended_at FROM runs`
	args := []interface{}{}
	if agentID != "" {
		query += ` WHERE agent_id = ?`
		args = append(args, agentID)
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		var run domain.RunRecord
		var aid sql.NullString
		var endedAt sql.NullTime
		if err := rows.Scan(&run.RunID, &aid, &run.AgentName, &run.Runtime, &run.Status, &run.StartedAt, &endedAt); err != nil {
			return nil, err
		}
		if aid.Valid {
			run.AgentID = aid.String
		}
		if endedAt.Valid {
			run.EndedAt = &endedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// UpdateRunCompleted marks a run as settled with the given terminal status.
func (s *SQLiteStore) UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, ended_at = ? WHERE run_id = ?`,
		status, time.Now(), runID)
	return err
}
