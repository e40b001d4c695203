package config

import (
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, 5*time.Second, cfg.DBOpTimeout)
	assert.Equal(t, 25, cfg.DBMaxOpenConns)
	assert.Equal(t, 5, cfg.DBMaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, 5*time.Minute, cfg.DBConnMaxIdleTime)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.HTTPShutdownTimeout)
	assert.Equal(t, "0 0 * * *", cfg.ReminderSchedule)
	assert.Equal(t, "Local", cfg.ReminderTimezone)
	assert.Equal(t, 7, cfg.ReminderHorizonDays)
	assert.Equal(t, "feb28", cfg.LeapDayPolicy)
	assert.Equal(t, 8, cfg.NotifyConcurrency)
	assert.Equal(t, "smtp", cfg.MailTransport)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, 5, cfg.CircuitBreakerThreshold)
	assert.Equal(t, 2*time.Minute, cfg.CircuitBreakerCooldown)
	assert.False(t, cfg.DedupeEnabled)
	assert.Equal(t, 8*24*time.Hour, cfg.DedupeTTL)
	assert.Equal(t, "/metrics", cfg.MetricsPath)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.False(t, cfg.LeaderElectionEnabled)
	assert.Equal(t, int64(727465), cfg.LeaderLockKey)
	assert.Equal(t, 15*time.Second, cfg.LeaderRetryInterval)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DB_OP_TIMEOUT", "10s")
	t.Setenv("REMINDER_SCHEDULE", "30 8 * * *")
	t.Setenv("REMINDER_TIMEZONE", "Europe/Paris")
	t.Setenv("REMINDER_HORIZON_DAYS", "14")
	t.Setenv("LEAP_DAY_POLICY", "mar1")
	t.Setenv("DEDUPE_ENABLED", "true")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://localhost:3000,https://example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 10*time.Second, cfg.DBOpTimeout)
	assert.Equal(t, "30 8 * * *", cfg.ReminderSchedule)
	assert.Equal(t, "Europe/Paris", cfg.ReminderTimezone)
	assert.Equal(t, 14, cfg.ReminderHorizonDays)
	assert.Equal(t, "mar1", cfg.LeapDayPolicy)
	assert.True(t, cfg.DedupeEnabled)
	assert.Equal(t, []string{"http://localhost:3000", "https://example.com"}, cfg.CORSAllowOrigins)
}

func TestLoad_PortFallback(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "3001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3001", cfg.HTTPAddr)
}

func TestLoad_MalformedValue(t *testing.T) {
	t.Setenv("NOTIFY_CONCURRENCY", "lots")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTIFY_CONCURRENCY")
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, Config{LogLevel: in}.SlogLevel(), "LOG_LEVEL=%q", in)
	}
}

func TestMaskedJSON_HidesSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = "postgres://user:hunter2@db/birthdays"
	cfg.SMTPPassword = "smtp-pass"
	cfg.MailWebhookSecret = "relay-secret"
	cfg.RedisPassword = "redis-pass"

	out, err := cfg.MaskedJSON()
	require.NoError(t, err)

	s := string(out)
	for _, secret := range []string{"hunter2", "smtp-pass", "relay-secret", "redis-pass"} {
		assert.NotContains(t, s, secret)
	}

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "postgres://***", decoded["database_url"])
	assert.Equal(t, "***", decoded["smtp_password"])
	assert.Equal(t, "2m0s", decoded["circuit_breaker_cooldown"])
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "postgresql://***", maskSecret("postgresql://u:p@h/db"))
	assert.Equal(t, "***", maskSecret("plain"))
	assert.False(t, strings.Contains(maskSecret("postgres://u:p@h/db"), "u:p"))
}
