package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for birthdayd.
// Values are loaded from environment variables; see printUsage() for the full list.
type Config struct {
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	DBOpTimeout       time.Duration `envconfig:"DB_OP_TIMEOUT" default:"5s"`
	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	DBConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"5m"`

	HTTPAddr            string        `envconfig:"HTTP_ADDR"`
	HTTPShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	CORSAllowOrigins    []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`

	ReminderSchedule    string `envconfig:"REMINDER_SCHEDULE" default:"0 0 * * *"`
	ReminderTimezone    string `envconfig:"REMINDER_TIMEZONE" default:"Local"`
	ReminderHorizonDays int    `envconfig:"REMINDER_HORIZON_DAYS" default:"7"`
	LeapDayPolicy       string `envconfig:"LEAP_DAY_POLICY" default:"feb28"`

	NotifyConcurrency int           `envconfig:"NOTIFY_CONCURRENCY" default:"8"`
	NotifySendTimeout time.Duration `envconfig:"NOTIFY_SEND_TIMEOUT" default:"30s"`

	// MailTransport: "smtp", "webhook" (HTTP mail relay) or "log".
	MailTransport     string `envconfig:"MAIL_TRANSPORT" default:"smtp"`
	MailFrom          string `envconfig:"MAIL_FROM"`
	NotificationEmail string `envconfig:"NOTIFICATION_EMAIL"`

	SMTPHost      string `envconfig:"SMTP_HOST"`
	SMTPPort      int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername  string `envconfig:"SMTP_USERNAME"`
	SMTPPassword  string `envconfig:"SMTP_PASSWORD"`
	SMTPTLSPolicy string `envconfig:"SMTP_TLS_POLICY" default:"mandatory"`

	MailWebhookURL     string        `envconfig:"MAIL_WEBHOOK_URL"`
	MailWebhookSecret  string        `envconfig:"MAIL_WEBHOOK_SECRET"`
	MailWebhookTimeout time.Duration `envconfig:"MAIL_WEBHOOK_TIMEOUT" default:"30s"`

	// CircuitBreakerThreshold: 0 disables the circuit breaker.
	CircuitBreakerThreshold int           `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`
	CircuitBreakerCooldown  time.Duration `envconfig:"CIRCUIT_BREAKER_COOLDOWN" default:"2m"`

	// DedupeEnabled turns on sent markers. Redis is used when RedisAddr is set,
	// otherwise markers live in process memory.
	DedupeEnabled bool          `envconfig:"DEDUPE_ENABLED" default:"false"`
	DedupeTTL     time.Duration `envconfig:"DEDUPE_TTL" default:"192h"`
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`

	// LeaderElectionEnabled lets only one replica run scheduled checks,
	// using a Postgres advisory lock.
	LeaderElectionEnabled   bool          `envconfig:"LEADER_ELECTION_ENABLED" default:"false"`
	LeaderLockKey           int64         `envconfig:"LEADER_LOCK_KEY" default:"727465"`
	LeaderRetryInterval     time.Duration `envconfig:"LEADER_RETRY_INTERVAL" default:"15s"`
	LeaderHeartbeatInterval time.Duration `envconfig:"LEADER_HEARTBEAT_INTERVAL" default:"5s"`

	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricsPath    string `envconfig:"METRICS_PATH" default:"/metrics"`
	MetricsPort    string `envconfig:"METRICS_PORT" default:"9090"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads configuration from environment variables with defaults.
// Only malformed values (a non-numeric port, an unparseable duration) fail
// here; everything else is checked by Validate.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "process env config")
	}

	// Support the platform PORT variable as fallback for HTTP_ADDR.
	if cfg.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.HTTPAddr = ":" + port
		} else {
			cfg.HTTPAddr = ":8080"
		}
	}

	return cfg, nil
}

// SlogLevel maps LOG_LEVEL to a slog level; unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MaskedJSON returns the configuration as JSON with secrets masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := struct {
		StoreDriver             string   `json:"store_driver"`
		DatabaseURL             string   `json:"database_url,omitempty"`
		DBOpTimeout             string   `json:"db_op_timeout"`
		DBMaxOpenConns          int      `json:"db_max_open_conns"`
		DBMaxIdleConns          int      `json:"db_max_idle_conns"`
		DBConnMaxLifetime       string   `json:"db_conn_max_lifetime"`
		DBConnMaxIdleTime       string   `json:"db_conn_max_idle_time"`
		HTTPAddr                string   `json:"http_addr"`
		HTTPShutdownTimeout     string   `json:"http_shutdown_timeout"`
		CORSAllowOrigins        []string `json:"cors_allow_origins"`
		ReminderSchedule        string   `json:"reminder_schedule"`
		ReminderTimezone        string   `json:"reminder_timezone"`
		ReminderHorizonDays     int      `json:"reminder_horizon_days"`
		LeapDayPolicy           string   `json:"leap_day_policy"`
		NotifyConcurrency       int      `json:"notify_concurrency"`
		NotifySendTimeout       string   `json:"notify_send_timeout"`
		MailTransport           string   `json:"mail_transport"`
		MailFrom                string   `json:"mail_from,omitempty"`
		NotificationEmail       string   `json:"notification_email,omitempty"`
		SMTPHost                string   `json:"smtp_host,omitempty"`
		SMTPPort                int      `json:"smtp_port"`
		SMTPUsername            string   `json:"smtp_username,omitempty"`
		SMTPPassword            string   `json:"smtp_password,omitempty"`
		SMTPTLSPolicy           string   `json:"smtp_tls_policy"`
		MailWebhookURL          string   `json:"mail_webhook_url,omitempty"`
		MailWebhookSecret       string   `json:"mail_webhook_secret,omitempty"`
		MailWebhookTimeout      string   `json:"mail_webhook_timeout"`
		CircuitBreakerThreshold int      `json:"circuit_breaker_threshold"`
		CircuitBreakerCooldown  string   `json:"circuit_breaker_cooldown"`
		DedupeEnabled           bool     `json:"dedupe_enabled"`
		DedupeTTL               string   `json:"dedupe_ttl"`
		RedisAddr               string   `json:"redis_addr,omitempty"`
		RedisPassword           string   `json:"redis_password,omitempty"`
		LeaderElectionEnabled   bool     `json:"leader_election_enabled"`
		LeaderLockKey           int64    `json:"leader_lock_key"`
		LeaderRetryInterval     string   `json:"leader_retry_interval"`
		LeaderHeartbeatInterval string   `json:"leader_heartbeat_interval"`
		MetricsEnabled          bool     `json:"metrics_enabled"`
		MetricsPath             string   `json:"metrics_path"`
		MetricsPort             string   `json:"metrics_port"`
		LogLevel                string   `json:"log_level"`
		LogFormat               string   `json:"log_format"`
	}{
		StoreDriver:             c.StoreDriver,
		DatabaseURL:             maskSecret(c.DatabaseURL),
		DBOpTimeout:             c.DBOpTimeout.String(),
		DBMaxOpenConns:          c.DBMaxOpenConns,
		DBMaxIdleConns:          c.DBMaxIdleConns,
		DBConnMaxLifetime:       c.DBConnMaxLifetime.String(),
		DBConnMaxIdleTime:       c.DBConnMaxIdleTime.String(),
		HTTPAddr:                c.HTTPAddr,
		HTTPShutdownTimeout:     c.HTTPShutdownTimeout.String(),
		CORSAllowOrigins:        c.CORSAllowOrigins,
		ReminderSchedule:        c.ReminderSchedule,
		ReminderTimezone:        c.ReminderTimezone,
		ReminderHorizonDays:     c.ReminderHorizonDays,
		LeapDayPolicy:           c.LeapDayPolicy,
		NotifyConcurrency:       c.NotifyConcurrency,
		NotifySendTimeout:       c.NotifySendTimeout.String(),
		MailTransport:           c.MailTransport,
		MailFrom:                c.MailFrom,
		NotificationEmail:       c.NotificationEmail,
		SMTPHost:                c.SMTPHost,
		SMTPPort:                c.SMTPPort,
		SMTPUsername:            c.SMTPUsername,
		SMTPPassword:            maskSecret(c.SMTPPassword),
		SMTPTLSPolicy:           c.SMTPTLSPolicy,
		MailWebhookURL:          c.MailWebhookURL,
		MailWebhookSecret:       maskSecret(c.MailWebhookSecret),
		MailWebhookTimeout:      c.MailWebhookTimeout.String(),
		CircuitBreakerThreshold: c.CircuitBreakerThreshold,
		CircuitBreakerCooldown:  c.CircuitBreakerCooldown.String(),
		DedupeEnabled:           c.DedupeEnabled,
		DedupeTTL:               c.DedupeTTL.String(),
		RedisAddr:               c.RedisAddr,
		RedisPassword:           maskSecret(c.RedisPassword),
		LeaderElectionEnabled:   c.LeaderElectionEnabled,
		LeaderLockKey:           c.LeaderLockKey,
		LeaderRetryInterval:     c.LeaderRetryInterval.String(),
		LeaderHeartbeatInterval: c.LeaderHeartbeatInterval.String(),
		MetricsEnabled:          c.MetricsEnabled,
		MetricsPath:             c.MetricsPath,
		MetricsPort:             c.MetricsPort,
		LogLevel:                c.LogLevel,
		LogFormat:               c.LogFormat,
	}
	return json.MarshalIndent(masked, "", "  ")
}

// maskSecret masks a secret value, preserving only the URI scheme if present.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(s, scheme) {
			return scheme + "***"
		}
	}
	return "***"
}
