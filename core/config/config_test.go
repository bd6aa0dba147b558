package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SCHEDULER_DISPATCH_DELAY", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2*time.Second, cfg.Scheduler.DispatchDelay)
	assert.Equal(t, 5, cfg.Scheduler.StaleLockMinutes)
	assert.Equal(t, 60, cfg.Apify.MaxPolls)
	assert.Same(t, cfg, Global)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("SCHEDULER_DISPATCH_DELAY", "500ms")
	t.Setenv("SCHEDULER_FETCH_TIMEOUT", "90")
	t.Setenv("SCHEDULER_PARALLEL", "yes")
	t.Setenv("APP_BASIC_AUTH", "admin:secret,ops:pw")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "tweetcast", cfg.Database.Name)
	assert.Equal(t, 500*time.Millisecond, cfg.Scheduler.DispatchDelay)
	assert.Equal(t, 90*time.Second, cfg.Scheduler.FetchTimeout)
	assert.True(t, cfg.Scheduler.Parallel)
	assert.Equal(t, []string{"admin:secret", "ops:pw"}, cfg.App.BasicAuth)
}
