package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.HTTPPort)
	assert.Equal(t, "native", cfg.Runtime)
	assert.True(t, cfg.SchedulerEnabled)
}

func TestLoadRejectsUnknownRuntime(t *testing.T) {
	t.Setenv("ARC_RUNTIME", "jvm")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jvm")
}

func TestLoadBinaryRuntimeRequiresPath(t *testing.T) {
	t.Setenv("ARC_RUNTIME", "binary")
	t.Setenv("ARC_RUNTIME_BINARY", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("ARC_RUNTIME_BINARY", "/usr/local/bin/arc-agent")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/arc-agent", cfg.RuntimeBinary)
}
