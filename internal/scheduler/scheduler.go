// Package scheduler fires runs for deployed agents that carry a schedule
// trigger. Scheduled runs have no stream consumer; their events are observed
// through the watch hub only.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/alphaarc/platform/internal/domain"
	"github.com/alphaarc/platform/internal/store"
)

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Launcher starts one agent run. Implemented by the run service.
type Launcher interface {
	LaunchScheduled(ctx context.Context, cfg *domain.AgentConfig)
}

// Scheduler registers one cron entry per deployed agent with an enabled
// schedule trigger.
type Scheduler struct {
	store    store.Store
	launcher Launcher
	cron     *cron.Cron
	log      *zap.Logger
}

// New creates a Scheduler over the given agent store.
func New(st store.Store, launcher Launcher, log *zap.Logger) *Scheduler {
	return &Scheduler{
		store:    st,
		launcher: launcher,
		cron:     cron.New(cron.WithParser(cronParser)),
		log:      log,
	}
}

// Start loads deployed agents, registers those with an enabled schedule
// trigger, and starts the cron ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	agents, err := s.store.ListDeployedAgents(ctx)
	if err != nil {
		return err
	}

	for i := range agents {
		cfg := agents[i]
		if cfg.Triggers == nil || cfg.Triggers.Schedule == nil {
			continue
		}
		trigger := cfg.Triggers.Schedule
		if !trigger.Enabled || trigger.Cron == "" {
			continue
		}

		agent := cfg
		_, err := s.cron.AddFunc(trigger.Cron, func() {
			s.log.Info("schedule fired",
				zap.String("agent", agent.Info.Name),
				zap.String("cron", trigger.Cron))
			s.launcher.LaunchScheduled(ctx, &agent)
		})
		if err != nil {
			s.log.Warn("invalid cron expression, skipping agent",
				zap.String("agent", cfg.Info.Name),
				zap.String("cron", trigger.Cron),
				zap.Error(err))
			continue
		}
		s.log.Info("scheduled agent",
			zap.String("agent", cfg.Info.Name),
			zap.String("cron", trigger.Cron))
	}

	s.cron.Start()
	return nil
}

// Reload stops the existing cron, creates a new one, and calls Start again.
// Used after agent configs change.
func (s *Scheduler) Reload(ctx context.Context) error {
	s.cron.Stop()
	s.cron = cron.New(cron.WithParser(cronParser))
	return s.Start(ctx)
}

// Stop stops the cron ticker. Entries mid-flight finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
