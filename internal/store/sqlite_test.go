package store

import (
	"context"
	"testing"
	"time"

	"github.com/alphaarc/platform/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func agentConfig(id, name string, deployed bool) *domain.AgentConfig {
	cfg := &domain.AgentConfig{ID: id, ConfigVersion: "1.0", IsDeployed: deployed}
	cfg.Info.Name = name
	cfg.Info.Character = "analyst"
	cfg.Info.Task = "summarize"
	return cfg
}

func TestSQLiteStoreAgentRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	cfg := agentConfig("a1", "momentum-bot", false)
	cfg.Tools.EnabledTools = []string{"paperTrading"}
	if err := store.SaveAgent(ctx, cfg); err != nil {
		t.Fatalf("SaveAgent failed: %v", err)
	}

	got, err := store.GetAgent(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAgent failed: %v", err)
	}
	if got == nil || got.Info.Name != "momentum-bot" {
		t.Fatalf("unexpected agent: %+v", got)
	}
	if !got.ToolEnabled("paperTrading") {
		t.Fatalf("expected paperTrading enabled after round trip")
	}

	missing, err := store.GetAgent(ctx, "nope")
	if err != nil {
		t.Fatalf("GetAgent failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing agent, got %+v", missing)
	}
}

func TestSQLiteStoreSaveAgentRequiresID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	if err := store.SaveAgent(ctx, agentConfig("", "nameless", false)); err == nil {
		t.Fatalf("expected error for empty agent id")
	}
}

func TestSQLiteStoreSaveAgentUpserts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	if err := store.SaveAgent(ctx, agentConfig("a1", "first", false)); err != nil {
		t.Fatalf("SaveAgent failed: %v", err)
	}
	if err := store.SaveAgent(ctx, agentConfig("a1", "second", true)); err != nil {
		t.Fatalf("SaveAgent failed: %v", err)
	}

	got, err := store.GetAgent(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAgent failed: %v", err)
	}
	if got.Info.Name != "second" || !got.IsDeployed {
		t.Fatalf("upsert did not replace config: %+v", got)
	}

	agents, err := store.ListAgents(ctx)
	if err != nil {
		t.Fatalf("ListAgents failed: %v", err)
	}
	if len(agents) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(agents))
	}
}

func TestSQLiteStoreListDeployedAgents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	for _, cfg := range []*domain.AgentConfig{
		agentConfig("a1", "deployed-1", true),
		agentConfig("a2", "draft", false),
		agentConfig("a3", "deployed-2", true),
	} {
		if err := store.SaveAgent(ctx, cfg); err != nil {
			t.Fatalf("SaveAgent failed: %v", err)
		}
	}

	deployed, err := store.ListDeployedAgents(ctx)
	if err != nil {
		t.Fatalf("ListDeployedAgents failed: %v", err)
	}
	if len(deployed) != 2 {
		t.Fatalf("expected 2 deployed agents, got %d", len(deployed))
	}
	for _, cfg := range deployed {
		if !cfg.IsDeployed {
			t.Fatalf("non-deployed agent in deployed list: %+v", cfg)
		}
	}
}

func TestSQLiteStoreDeleteAgent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	if err := store.SaveAgent(ctx, agentConfig("a1", "gone", false)); err != nil {
		t.Fatalf("SaveAgent failed: %v", err)
	}
	if err := store.DeleteAgent(ctx, "a1"); err != nil {
		t.Fatalf("DeleteAgent failed: %v", err)
	}
	got, err := store.GetAgent(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAgent failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected agent deleted, got %+v", got)
	}
}

func TestSQLiteStoreRunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	run := &domain.RunRecord{
		RunID:     "run_1",
		AgentID:   "a1",
		AgentName: "momentum-bot",
		Runtime:   "native",
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := store.GetRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil || got.Status != domain.RunStatusRunning || got.EndedAt != nil {
		t.Fatalf("unexpected run: %+v", got)
	}

	if err := store.UpdateRunCompleted(ctx, "run_1", domain.RunStatusCompleted); err != nil {
		t.Fatalf("UpdateRunCompleted failed: %v", err)
	}
	got, err = store.GetRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != domain.RunStatusCompleted || got.EndedAt == nil {
		t.Fatalf("run not settled: %+v", got)
	}
}

func TestSQLiteStoreListRunsScopedToAgent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	base := time.Now().Add(-time.Hour)
	for i, agentID := range []string{"a1", "a2", "a1"} {
		run := &domain.RunRecord{
			RunID:     "run_" + string(rune('a'+i)),
			AgentID:   agentID,
			AgentName: "bot",
			Runtime:   "native",
			Status:    domain.RunStatusCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx, "a1", 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs for a1, got %d", len(runs))
	}
	if runs[0].StartedAt.Before(runs[1].StartedAt) {
		t.Fatalf("runs not newest-first")
	}

	all, err := store.ListRuns(ctx, "", 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("limit not applied, got %d runs", len(all))
	}
}
