// Package config provides process-wide configuration for the platform.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the platform configuration. It is read once at process start
// and treated as immutable afterwards.
type Config struct {
	// Server settings
	HTTPPort int `env:"ARC_HTTP_PORT" envDefault:"3000"`

	// Runtime selection (resolved once per process, consumed on every run)
	Runtime       string `env:"ARC_RUNTIME" envDefault:"native"`
	RuntimeBinary string `env:"ARC_RUNTIME_BINARY" envDefault:""`

	// Data API collaborator
	DataAPIBase string `env:"ARC_DATA_API_BASE" envDefault:"http://localhost:4000"`
	DataAPIKey  string `env:"ARC_DATA_API_KEY" envDefault:""`
	AuthSecret  string `env:"ARC_AUTH_SECRET" envDefault:"dev-secret"`

	// Agent store
	DatabaseURL string `env:"ARC_DATABASE_URL" envDefault:"file:alphaarc.db?cache=shared&mode=rwc"`

	// Schedule triggers for deployed agents
	SchedulerEnabled bool `env:"ARC_SCHEDULER_ENABLED" envDefault:"true"`

	// Timeouts
	RunTimeout time.Duration `env:"ARC_RUN_TIMEOUT" envDefault:"5m"`

	// Logging
	LogLevel string `env:"ARC_LOG_LEVEL" envDefault:"info"`
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.Runtime != "native" && cfg.Runtime != "binary" {
		return nil, fmt.Errorf("unknown runtime %q (want native or binary)", cfg.Runtime)
	}
	if cfg.Runtime == "binary" && cfg.RuntimeBinary == "" {
		return nil, fmt.Errorf("ARC_RUNTIME_BINARY is required when ARC_RUNTIME=binary")
	}
	return cfg, nil
}
