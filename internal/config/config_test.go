package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDefaults(t *testing.T) {
	t.Run("auto picks sqlite without DSN", func(t *testing.T) {
		cfg := &Config{DBDriver: "auto"}
		require.NoError(t, cfg.ResolveDefaults())
		assert.Equal(t, "sqlite", cfg.DBDriver)
	})

	t.Run("auto picks postgres with DSN", func(t *testing.T) {
		cfg := &Config{DBDriver: "auto", PostgresDSN: "postgres://localhost/lean"}
		require.NoError(t, cfg.ResolveDefaults())
		assert.Equal(t, "postgres", cfg.DBDriver)
	})

	t.Run("postgres without DSN rejected", func(t *testing.T) {
		cfg := &Config{DBDriver: "postgres"}
		assert.Error(t, cfg.ResolveDefaults())
	})

	t.Run("unknown driver rejected", func(t *testing.T) {
		cfg := &Config{DBDriver: "oracle"}
		assert.Error(t, cfg.ResolveDefaults())
	})
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("LEAN_HTTP_PORT", "9191")
	t.Setenv("LEAN_DB_DRIVER", "sqlite")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.HTTPPort)
	assert.Equal(t, ":9191", cfg.GetHTTPAddr())
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.False(t, cfg.IsProduction())
}

func TestNewForTesting(t *testing.T) {
	cfg := NewForTesting()
	assert.True(t, cfg.IsTesting())
	assert.Equal(t, "sqlite", cfg.DBDriver)
}
