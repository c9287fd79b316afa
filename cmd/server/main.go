// Command server runs the agent platform: the streaming run API, the agent
// config store, schedule triggers, and the run watch hub.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alphaarc/platform/internal/config"
	"github.com/alphaarc/platform/internal/hub"
	"github.com/alphaarc/platform/internal/logging"
	"github.com/alphaarc/platform/internal/policy"
	"github.com/alphaarc/platform/internal/runtime"
	"github.com/alphaarc/platform/internal/scheduler"
	"github.com/alphaarc/platform/internal/service"
	"github.com/alphaarc/platform/internal/store"
	transport "github.com/alphaarc/platform/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting platform",
		zap.Int("port", cfg.HTTPPort),
		zap.String("runtime", cfg.Runtime),
		zap.String("database", cfg.DatabaseURL))

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	native := runtime.NewNativeRuntime(policyEngine)
	manager := runtime.NewManager(runtime.Selection{
		Kind:       runtime.Kind(cfg.Runtime),
		BinaryPath: cfg.RuntimeBinary,
	}, native, log)

	h := hub.NewHub(log)
	svc := service.New(ctx, cfg, db, manager, h, log)

	handler := transport.NewHandler(svc, h, cfg, log)
	e := transport.NewServer(handler)

	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		sched = scheduler.New(db, svc, log)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.Run(gctx)
		return nil
	})
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("platform stopped")
	return nil
}
