// Package service owns the run lifecycle: it accepts a run request, hands
// the stream's readable side back to the transport immediately, and drives
// the run to completion on a detached task.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alphaarc/platform/internal/config"
	"github.com/alphaarc/platform/internal/domain"
	"github.com/alphaarc/platform/internal/hub"
	"github.com/alphaarc/platform/internal/llm"
	"github.com/alphaarc/platform/internal/remotelog"
	"github.com/alphaarc/platform/internal/runtime"
	"github.com/alphaarc/platform/internal/sdk"
	"github.com/alphaarc/platform/internal/store"
)

// ErrAgentNotFound is returned when a stored agent ID is unknown.
var ErrAgentNotFound = errors.New("agent not found")

// Service coordinates agent runs and agent config management.
type Service struct {
	cfg     *config.Config
	store   store.Store
	manager *runtime.Manager
	hub     *hub.Hub
	log     *zap.Logger

	// baseCtx bounds every run task. It is the process lifetime, not the
	// request lifetime: the HTTP request context dies with the connection,
	// while the run must be able to finish without one.
	baseCtx context.Context

	newSDK func() *sdk.Client
}

// Option configures a Service.
type Option func(*Service)

// WithSDKFactory overrides how per-run data clients are built. Test hook.
func WithSDKFactory(f func() *sdk.Client) Option {
	return func(s *Service) { s.newSDK = f }
}

// New creates the run service. baseCtx should be the process root context;
// cancelling it terminates in-flight runs.
func New(
	baseCtx context.Context,
	cfg *config.Config,
	st store.Store,
	manager *runtime.Manager,
	h *hub.Hub,
	log *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		cfg:     cfg,
		store:   st,
		manager: manager,
		hub:     h,
		log:     log,
		baseCtx: baseCtx,
	}
	s.newSDK = func() *sdk.Client {
		return sdk.NewClient(sdk.Config{
			APIKey:  cfg.DataAPIKey,
			BaseURL: cfg.DataAPIBase,
		})
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run is a live handle on one started run.
type Run struct {
	ID     string
	Logger *remotelog.Logger
}

// StartRun validates the request, launches the run task, and returns the
// handle whose Logger.Reader() is the response stream. The caller owns the
// readable side only; the run task owns Log and Close.
func (s *Service) StartRun(req *domain.RunRequest) (*Run, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	runID := "run_" + uuid.New().String()
	logger := remotelog.New(remotelog.WithTap(func(ev domain.LogEvent) {
		s.hub.BroadcastEvent(runID, ev)
	}))

	record := &domain.RunRecord{
		RunID:     runID,
		AgentID:   req.AgentConfig.ID,
		AgentName: req.AgentConfig.Info.Name,
		Runtime:   string(s.manager.Kind()),
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := s.store.CreateRun(s.baseCtx, record); err != nil {
		// Bookkeeping only; the run is still worth executing.
		s.log.Warn("failed to persist run record", zap.String("run", runID), zap.Error(err))
	}

	go s.executeRun(runID, req, logger)
	return &Run{ID: runID, Logger: logger}, nil
}

// LaunchScheduled starts a run with no stream consumer. Events still reach
// the watch hub through the tap; the stream itself is drained and discarded.
func (s *Service) LaunchScheduled(ctx context.Context, cfg *domain.AgentConfig) {
	run, err := s.StartRun(&domain.RunRequest{AgentConfig: *cfg})
	if err != nil {
		s.log.Warn("scheduled run rejected",
			zap.String("agent", cfg.Info.Name), zap.Error(err))
		return
	}
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := run.Logger.Reader().Read(buf); err != nil {
				return
			}
		}
	}()
}

// executeRun is the run task: it drives the manager and is the single owner
// of the logger's Close.
func (s *Service) executeRun(runID string, req *domain.RunRequest, logger *remotelog.Logger) {
	defer logger.Close()

	ctx := s.baseCtx
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	env := &runtime.Environment{
		Config:    &req.AgentConfig,
		Overrides: req.Overrides,
		Logger:    logger,
		SDK:       s.newSDK(),
	}
	s.manager.RunAgent(ctx, env)

	status := domain.RunStatusCompleted
	if logger.Abandoned() {
		status = domain.RunStatusAbandoned
	}
	if err := s.store.UpdateRunCompleted(s.baseCtx, runID, status); err != nil {
		s.log.Warn("failed to settle run record", zap.String("run", runID), zap.Error(err))
	}
	s.log.Info("run settled", zap.String("run", runID))
}

// validateRequest rejects requests that cannot produce a meaningful run.
// Deeper config problems surface as ERROR events on the stream instead.
func validateRequest(req *domain.RunRequest) error {
	if strings.TrimSpace(req.AgentConfig.Info.Name) == "" {
		return fmt.Errorf("agent name is required")
	}
	if req.AgentConfig.LLM.Provider == "" {
		return fmt.Errorf("llm provider is required")
	}
	return nil
}

// SaveAgent validates and persists an agent config, minting an ID when the
// config has none.
func (s *Service) SaveAgent(ctx context.Context, cfg *domain.AgentConfig) (*domain.AgentConfig, error) {
	if strings.TrimSpace(cfg.Info.Name) == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if cfg.ID == "" {
		cfg.ID = "agent_" + uuid.New().String()
	}
	if err := s.store.SaveAgent(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetAgent returns the stored config, or nil when unknown.
func (s *Service) GetAgent(ctx context.Context, agentID string) (*domain.AgentConfig, error) {
	return s.store.GetAgent(ctx, agentID)
}

// ListAgents returns all stored agent configs.
func (s *Service) ListAgents(ctx context.Context) ([]domain.AgentConfig, error) {
	return s.store.ListAgents(ctx)
}

// DeleteAgent removes a stored agent config.
func (s *Service) DeleteAgent(ctx context.Context, agentID string) error {
	return s.store.DeleteAgent(ctx, agentID)
}

// GetRun returns the persisted record of a run, or nil when unknown.
func (s *Service) GetRun(ctx context.Context, runID string) (*domain.RunRecord, error) {
	return s.store.GetRun(ctx, runID)
}

// ListRuns lists run records, optionally scoped to one agent.
func (s *Service) ListRuns(ctx context.Context, agentID string, limit int) ([]domain.RunRecord, error) {
	return s.store.ListRuns(ctx, agentID, limit)
}

// StartStoredRun launches a run for a stored agent, with optional overrides.
func (s *Service) StartStoredRun(ctx context.Context, agentID string, overrides *domain.RunOverrides) (*Run, error) {
	cfg, err := s.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrAgentNotFound
	}
	return s.StartRun(&domain.RunRequest{AgentConfig: *cfg, Overrides: overrides})
}

// ListModels returns the model catalog for the given provider.
func (s *Service) ListModels(ctx context.Context, provider string) ([]domain.Model, error) {
	if provider == "" {
		provider = "mock"
	}
	client, err := llm.New(domain.LLMSpec{Provider: provider})
	if err != nil {
		return nil, err
	}
	return client.ListModels(ctx)
}

// QueryData proxies a data query through the platform's own credential.
func (s *Service) QueryData(ctx context.Context, query string, interval domain.TimeInterval) (json.RawMessage, error) {
	client := s.newSDK()
	if !client.IsLoggedIn() {
		if err := client.Login(ctx); err != nil {
			return nil, fmt.Errorf("data api login failed: %w", err)
		}
	}
	res, err := client.Query(ctx, query, interval)
	if err != nil {
		return nil, err
	}
	if res.Error != "" {
		return nil, fmt.Errorf("%s", res.Error)
	}
	return res.Data, nil
}
