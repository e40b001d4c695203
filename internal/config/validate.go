package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/djlord-it/birthday-reminder/internal/cron"
	"github.com/djlord-it/birthday-reminder/internal/matcher"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate checks the configuration for errors without making connections.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			add("DATABASE_URL", "required when STORE_DRIVER=postgres")
		}
	case "memory":
	default:
		add("STORE_DRIVER", "must be 'postgres' or 'memory', got %q", cfg.StoreDriver)
	}

	if cfg.DBOpTimeout <= 0 {
		add("DB_OP_TIMEOUT", "must be positive")
	}
	if cfg.HTTPShutdownTimeout <= 0 {
		add("HTTP_SHUTDOWN_TIMEOUT", "must be positive")
	}

	if _, err := cron.LoadLocation(cfg.ReminderTimezone); err != nil {
		add("REMINDER_TIMEZONE", "%v", err)
	} else if _, err := cron.NewParser().Parse(cfg.ReminderSchedule, cfg.ReminderTimezone); err != nil {
		add("REMINDER_SCHEDULE", "%v", err)
	}

	if cfg.ReminderHorizonDays < 1 || cfg.ReminderHorizonDays > 365 {
		add("REMINDER_HORIZON_DAYS", "must be between 1 and 365, got %d", cfg.ReminderHorizonDays)
	}
	if _, err := matcher.ParseLeapDayPolicy(cfg.LeapDayPolicy); err != nil {
		add("LEAP_DAY_POLICY", "%v", err)
	}

	if cfg.NotifyConcurrency < 1 {
		add("NOTIFY_CONCURRENCY", "must be at least 1")
	}
	if cfg.NotifySendTimeout <= 0 {
		add("NOTIFY_SEND_TIMEOUT", "must be positive")
	}

	if cfg.NotificationEmail == "" {
		add("NOTIFICATION_EMAIL", "required")
	} else if _, err := mail.ParseAddress(cfg.NotificationEmail); err != nil {
		add("NOTIFICATION_EMAIL", "invalid address: %v", err)
	}
	if cfg.MailFrom != "" {
		if _, err := mail.ParseAddress(cfg.MailFrom); err != nil {
			add("MAIL_FROM", "invalid address: %v", err)
		}
	}

	switch cfg.MailTransport {
	case "smtp":
		if cfg.SMTPHost == "" {
			add("SMTP_HOST", "required when MAIL_TRANSPORT=smtp")
		}
		if cfg.MailFrom == "" {
			add("MAIL_FROM", "required when MAIL_TRANSPORT=smtp")
		}
		if cfg.SMTPPort < 1 || cfg.SMTPPort > 65535 {
			add("SMTP_PORT", "must be a valid port, got %d", cfg.SMTPPort)
		}
		switch cfg.SMTPTLSPolicy {
		case "mandatory", "opportunistic", "none":
		default:
			add("SMTP_TLS_POLICY", "must be 'mandatory', 'opportunistic' or 'none', got %q", cfg.SMTPTLSPolicy)
		}
	case "webhook":
		if cfg.MailWebhookURL == "" {
			add("MAIL_WEBHOOK_URL", "required when MAIL_TRANSPORT=webhook")
		} else if u, err := url.Parse(cfg.MailWebhookURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("MAIL_WEBHOOK_URL", "must be an absolute http(s) URL")
		}
		if cfg.MailWebhookTimeout <= 0 {
			add("MAIL_WEBHOOK_TIMEOUT", "must be positive")
		}
	case "log":
	default:
		add("MAIL_TRANSPORT", "must be 'smtp', 'webhook' or 'log', got %q", cfg.MailTransport)
	}

	if cfg.CircuitBreakerThreshold < 0 {
		add("CIRCUIT_BREAKER_THRESHOLD", "must not be negative")
	} else if cfg.CircuitBreakerThreshold > 0 && cfg.CircuitBreakerCooldown <= 0 {
		add("CIRCUIT_BREAKER_COOLDOWN", "must be positive when the circuit breaker is enabled")
	}

	// A marker must outlive the horizon, or the same occurrence could be
	// claimed again before its birthday.
	if cfg.DedupeEnabled && cfg.DedupeTTL.Hours() < float64(24*cfg.ReminderHorizonDays) {
		add("DEDUPE_TTL", "must be at least REMINDER_HORIZON_DAYS days, got %s", cfg.DedupeTTL)
	}

	if cfg.LeaderElectionEnabled {
		if cfg.StoreDriver != "postgres" {
			add("LEADER_ELECTION_ENABLED", "requires STORE_DRIVER=postgres")
		}
		if cfg.LeaderRetryInterval <= 0 {
			add("LEADER_RETRY_INTERVAL", "must be positive")
		}
		if cfg.LeaderHeartbeatInterval <= 0 {
			add("LEADER_HEARTBEAT_INTERVAL", "must be positive")
		}
	}

	if cfg.MetricsEnabled && !strings.HasPrefix(cfg.MetricsPath, "/") {
		add("METRICS_PATH", "must start with '/'")
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("LOG_LEVEL", "must be one of debug, info, warn, error; got %q", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		add("LOG_FORMAT", "must be 'json' or 'text', got %q", cfg.LogFormat)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
