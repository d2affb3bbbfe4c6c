package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t, "PORT", "DATABASE_URL", "CRON_EXPRESSION", "CRON_ENABLED",
		"DELAY_THRESHOLD_MINUTES", "HTTP_CLIENT_TIMEOUT_SECONDS",
		"OUTBOX_MAX_RETRIES", "OUTBOX_RETENTION_DAYS", "DB_HOST", "DB_PORT",
		"DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "*/5 * * * *", cfg.CronExpression)
	assert.True(t, cfg.CronEnabled)
	assert.Equal(t, 15, cfg.DelayThresholdMinutes)
	assert.Equal(t, 30*time.Second, cfg.HTTPClientTimeout)
	assert.Equal(t, 3, cfg.OutboxMaxRetries)
	assert.Equal(t, 30, cfg.OutboxRetentionDays)
	assert.Contains(t, cfg.DatabaseURL, "host=localhost")
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://explicit-dsn")
	t.Setenv("CRON_ENABLED", "false")
	t.Setenv("DELAY_THRESHOLD_MINUTES", "20")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://explicit-dsn", cfg.DatabaseURL)
	assert.False(t, cfg.CronEnabled)
	assert.Equal(t, 20, cfg.DelayThresholdMinutes)
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("DELAY_THRESHOLD_MINUTES", "not-a-number")

	cfg := Load()

	assert.Equal(t, 15, cfg.DelayThresholdMinutes)
}
