package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		StoreDriver:             "postgres",
		DatabaseURL:             "postgres://localhost/birthdays",
		DBOpTimeout:             5 * time.Second,
		HTTPShutdownTimeout:     10 * time.Second,
		ReminderSchedule:        "0 0 * * *",
		ReminderTimezone:        "UTC",
		ReminderHorizonDays:     7,
		LeapDayPolicy:           "feb28",
		NotifyConcurrency:       8,
		NotifySendTimeout:       30 * time.Second,
		MailTransport:           "smtp",
		MailFrom:                "reminders@example.com",
		NotificationEmail:       "me@example.com",
		SMTPHost:                "smtp.example.com",
		SMTPPort:                587,
		SMTPTLSPolicy:           "mandatory",
		MailWebhookTimeout:      30 * time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerCooldown:  2 * time.Minute,
		DedupeTTL:               192 * time.Hour,
		MetricsPath:             "/metrics",
		LogLevel:                "info",
		LogFormat:               "json",
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_MemoryStoreNeedsNoDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.StoreDriver = "memory"
	cfg.DatabaseURL = ""

	assert.NoError(t, Validate(cfg))
}

func TestValidate_LogTransportNeedsNoSMTP(t *testing.T) {
	cfg := validConfig()
	cfg.MailTransport = "log"
	cfg.SMTPHost = ""
	cfg.MailFrom = ""

	assert.NoError(t, Validate(cfg))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing database url", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"unknown store driver", func(c *Config) { c.StoreDriver = "mongo" }, "STORE_DRIVER"},
		{"bad schedule", func(c *Config) { c.ReminderSchedule = "every day" }, "REMINDER_SCHEDULE"},
		{"schedule never fires", func(c *Config) { c.ReminderSchedule = "0 0 30 2 *" }, "REMINDER_SCHEDULE"},
		{"bad timezone", func(c *Config) { c.ReminderTimezone = "Mars/Olympus" }, "REMINDER_TIMEZONE"},
		{"zero horizon", func(c *Config) { c.ReminderHorizonDays = 0 }, "REMINDER_HORIZON_DAYS"},
		{"huge horizon", func(c *Config) { c.ReminderHorizonDays = 400 }, "REMINDER_HORIZON_DAYS"},
		{"unknown leap policy", func(c *Config) { c.LeapDayPolicy = "skip" }, "LEAP_DAY_POLICY"},
		{"zero concurrency", func(c *Config) { c.NotifyConcurrency = 0 }, "NOTIFY_CONCURRENCY"},
		{"missing recipient", func(c *Config) { c.NotificationEmail = "" }, "NOTIFICATION_EMAIL"},
		{"bad recipient", func(c *Config) { c.NotificationEmail = "not an email" }, "NOTIFICATION_EMAIL"},
		{"smtp without host", func(c *Config) { c.SMTPHost = "" }, "SMTP_HOST"},
		{"smtp without sender", func(c *Config) { c.MailFrom = "" }, "MAIL_FROM"},
		{"bad tls policy", func(c *Config) { c.SMTPTLSPolicy = "always" }, "SMTP_TLS_POLICY"},
		{"unknown transport", func(c *Config) { c.MailTransport = "pigeon" }, "MAIL_TRANSPORT"},
		{"webhook without url", func(c *Config) { c.MailTransport = "webhook" }, "MAIL_WEBHOOK_URL"},
		{"webhook relative url", func(c *Config) {
			c.MailTransport = "webhook"
			c.MailWebhookURL = "/relay"
		}, "MAIL_WEBHOOK_URL"},
		{"negative breaker", func(c *Config) { c.CircuitBreakerThreshold = -1 }, "CIRCUIT_BREAKER_THRESHOLD"},
		{"breaker without cooldown", func(c *Config) { c.CircuitBreakerCooldown = 0 }, "CIRCUIT_BREAKER_COOLDOWN"},
		{"dedupe ttl shorter than horizon", func(c *Config) {
			c.DedupeEnabled = true
			c.DedupeTTL = 48 * time.Hour
		}, "DEDUPE_TTL"},
		{"leader election on memory store", func(c *Config) {
			c.StoreDriver = "memory"
			c.LeaderElectionEnabled = true
			c.LeaderRetryInterval = time.Second
			c.LeaderHeartbeatInterval = time.Second
		}, "LEADER_ELECTION_ENABLED"},
		{"leader election without retry interval", func(c *Config) {
			c.LeaderElectionEnabled = true
			c.LeaderHeartbeatInterval = time.Second
		}, "LEADER_RETRY_INTERVAL"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_DisabledBreakerIgnoresCooldown(t *testing.T) {
	cfg := validConfig()
	cfg.CircuitBreakerThreshold = 0
	cfg.CircuitBreakerCooldown = 0

	assert.NoError(t, Validate(cfg))
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = ""
	cfg.LeapDayPolicy = "skip"

	err := Validate(cfg)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
	assert.Contains(t, err.Error(), "2 validation errors")
}
