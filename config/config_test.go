package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "DB_DRIVER", "REDIS_ADDR", "FORECAST_CONCURRENCY", "SNAPSHOT_INTERVAL", "FORECAST_CACHE_TTL"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.False(t, cfg.CacheEnabled())
	assert.Equal(t, 8, cfg.Forecast.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.Forecast.CacheTTL)
	assert.Zero(t, cfg.Forecast.SnapshotInterval)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("PG_PORT", "6543")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("SNAPSHOT_INTERVAL", "15")

	cfg := FromEnv()

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 6543, cfg.Postgres.Port)
	assert.True(t, cfg.CacheEnabled())
	assert.Equal(t, 15*time.Minute, cfg.Forecast.SnapshotInterval)
}
