package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/djlord-it/birthday-reminder/internal/config"
	"github.com/djlord-it/birthday-reminder/internal/domain"
	"github.com/djlord-it/birthday-reminder/internal/vcard"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitRuntimeError)
	}

	cmd := os.Args[1]

	switch cmd {
	case "serve":
		os.Exit(runServe())
	case "check":
		os.Exit(runCheck())
	case "import":
		os.Exit(runImport(os.Args[2:]))
	case "validate":
		os.Exit(runValidate())
	case "config":
		os.Exit(runConfig())
	case "version":
		os.Exit(runVersion())
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitRuntimeError)
	}
}

func printUsage() {
	fmt.Println(`birthdayd - birthday reminder service

Usage:
  birthdayd <command>

Commands:
  serve              Start the HTTP API and the reminder scheduler
  check              Run one reminder check now and print the report
  import <file.vcf>  Create birthday records from a vCard file
  validate           Validate configuration (no connections made)
  config             Print effective configuration as JSON (secrets masked)
  version            Print version information

Environment Variables:
  STORE_DRIVER              "postgres" or "memory" (default: "postgres")
  DATABASE_URL              PostgreSQL connection string (required for postgres)
  DB_OP_TIMEOUT             Database operation timeout (default: "5s")
  DB_MAX_OPEN_CONNS         Max open database connections (default: "25")
  DB_MAX_IDLE_CONNS         Max idle database connections (default: "5")
  DB_CONN_MAX_LIFETIME      Max connection lifetime (default: "30m")
  DB_CONN_MAX_IDLE_TIME     Max connection idle time (default: "5m")

  HTTP_ADDR                 HTTP server address (default: ":$PORT" or ":8080")
  HTTP_SHUTDOWN_TIMEOUT     Graceful HTTP shutdown timeout (default: "10s")
  CORS_ALLOW_ORIGINS        Comma-separated allowed origins (default: "*")

  REMINDER_SCHEDULE         Cron expression for checks (default: "0 0 * * *")
  REMINDER_TIMEZONE         IANA zone for the schedule and "today" (default: "Local")
  REMINDER_HORIZON_DAYS     Days ahead to remind (default: "7")
  LEAP_DAY_POLICY           Feb 29 in common years: feb28, mar1, strict (default: "feb28")

  NOTIFY_CONCURRENCY        Parallel sends per run (default: "8")
  NOTIFY_SEND_TIMEOUT       Per-message send timeout (default: "30s")
  MAIL_TRANSPORT            "smtp", "webhook" or "log" (default: "smtp")
  MAIL_FROM                 Sender address (required)
  NOTIFICATION_EMAIL        Recipient address (required)
  SMTP_HOST                 SMTP relay host (required for smtp)
  SMTP_PORT                 SMTP relay port (default: "587")
  SMTP_USERNAME             SMTP username (optional)
  SMTP_PASSWORD             SMTP password (optional)
  SMTP_TLS_POLICY           mandatory, opportunistic or none (default: "mandatory")
  MAIL_WEBHOOK_URL          Mail relay URL (required for webhook)
  MAIL_WEBHOOK_SECRET       HMAC secret for X-Birthday-Signature (optional)
  MAIL_WEBHOOK_TIMEOUT      Mail relay request timeout (default: "30s")

  CIRCUIT_BREAKER_THRESHOLD Consecutive send failures before skipping the transport, 0 disables (default: "5")
  CIRCUIT_BREAKER_COOLDOWN  Time before a tripped breaker lets a send through (default: "2m")

  LEADER_ELECTION_ENABLED   Run scheduled checks on one replica only, needs postgres (default: "false")
  LEADER_LOCK_KEY           Postgres advisory lock key (default: "727465")
  LEADER_RETRY_INTERVAL     Follower lock retry interval (default: "15s")
  LEADER_HEARTBEAT_INTERVAL Leader connection ping interval (default: "5s")

  DEDUPE_ENABLED            Remember sent reminders per occurrence (default: "false")
  DEDUPE_TTL                How long a sent marker is kept (default: "192h")
  REDIS_ADDR                Redis address for sent markers (optional, memory if unset)
  REDIS_PASSWORD            Redis password (optional)

  METRICS_ENABLED           Enable Prometheus metrics (default: "false")
  METRICS_PATH              Metrics endpoint path (default: "/metrics")
  METRICS_PORT              Metrics server port (default: "9090")

  LOG_LEVEL                 debug, info, warn, error (default: "info")
  LOG_FORMAT                json or text (default: "json")`)
}

// loadConfig loads and validates configuration, returning a non-zero exit code on failure.
func loadConfig() (config.Config, int) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return config.Config{}, exitInvalidConfig
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return config.Config{}, exitInvalidConfig
	}
	return cfg, exitSuccess
}

func runServe() int {
	cfg, code := loadConfig()
	if code != exitSuccess {
		return code
	}

	logger := newLogger(cfg, os.Stdout)
	slog.SetDefault(logger)
	logConfigWarnings(cfg, logger)

	ctx := context.Background()
	app, err := build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return exitRuntimeError
	}
	defer app.Close()

	app.StartServers()
	app.StartScheduler(ctx)

	logger.Info("started",
		"version", version,
		"http_addr", cfg.HTTPAddr,
		"schedule", cfg.ReminderSchedule,
		"timezone", cfg.ReminderTimezone,
		"horizon_days", cfg.ReminderHorizonDays,
		"transport", cfg.MailTransport,
		"leader_election", cfg.LeaderElectionEnabled,
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	logger.Info("received signal, shutting down", "signal", received.String())
	app.Shutdown(cfg.HTTPShutdownTimeout)
	logger.Info("stopped")
	return exitSuccess
}

// runCheck performs a single manual run and prints its report as JSON.
// The exit code is non-zero if the run aborted or any reminder failed.
func runCheck() int {
	cfg, code := loadConfig()
	if code != exitSuccess {
		return code
	}

	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	ctx := context.Background()
	app, err := build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return exitRuntimeError
	}
	defer app.Close()

	report, err := app.scheduler.TriggerNow(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "check failed: %v\n", err)
		return exitRuntimeError
	}

	data, err := json.MarshalIndent(summarize(report), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal report: %v\n", err)
		return exitRuntimeError
	}
	fmt.Println(string(data))

	if report.Count(domain.OutcomeFailed) > 0 {
		return exitRuntimeError
	}
	return exitSuccess
}

type checkSummary struct {
	TargetDate string   `json:"target_date"`
	Due        int      `json:"due"`
	Sent       []string `json:"sent"`
	Suppressed []string `json:"suppressed"`
	Failed     []string `json:"failed"`
}

func summarize(report domain.Report) checkSummary {
	s := checkSummary{
		TargetDate: report.Window.Target.Format(domain.DateLayout),
		Due:        len(report.Jobs),
		Sent:       []string{},
		Suppressed: []string{},
		Failed:     []string{},
	}
	for _, o := range report.Outcomes {
		switch o.Status {
		case domain.OutcomeSent:
			s.Sent = append(s.Sent, o.Job.Record.Name)
		case domain.OutcomeSuppressed:
			s.Suppressed = append(s.Suppressed, o.Job.Record.Name)
		case domain.OutcomeFailed:
			s.Failed = append(s.Failed, fmt.Sprintf("%s: %s", o.Job.Record.Name, o.Reason))
		}
	}
	return s
}

func runImport(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: birthdayd import <file.vcf>")
		return exitRuntimeError
	}

	cfg, code := loadConfig()
	if code != exitSuccess {
		return code
	}
	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	if cfg.StoreDriver == "memory" {
		logger.Warn("STORE_DRIVER=memory: imported records are discarded when the command exits")
	}

	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", args[0], err)
		return exitRuntimeError
	}
	defer f.Close()

	res, err := vcard.Parse(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", args[0], err)
		return exitRuntimeError
	}

	ctx := context.Background()
	st, _, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store failed", "error", err)
		return exitRuntimeError
	}
	defer closeStore()

	created, failed := importEntries(ctx, st, res.Entries, time.Now, logger)

	fmt.Printf("imported %d, skipped %d, failed %d\n", created, res.Skipped, failed)
	if failed > 0 {
		return exitRuntimeError
	}
	return exitSuccess
}

// importEntries creates one record per entry, logging and counting failures.
func importEntries(ctx context.Context, st recordStore, entries []vcard.Entry, clock func() time.Time, logger *slog.Logger) (created, failed int) {
	for _, e := range entries {
		rec := domain.BirthdayRecord{
			ID:          uuid.New(),
			Name:        e.Name,
			DateOfBirth: e.DateOfBirth,
			CreatedAt:   clock().UTC(),
		}
		if err := st.Create(ctx, rec); err != nil {
			logger.Error("import record failed", "name", e.Name, "error", err)
			if errors.Is(err, domain.ErrStoreUnavailable) {
				return created, len(entries) - created
			}
			failed++
			continue
		}
		created++
	}
	return created, failed
}

func runValidate() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	fmt.Println("configuration valid")
	return exitSuccess
}

func runConfig() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}

	fmt.Println(string(data))
	return exitSuccess
}

func runVersion() int {
	fmt.Printf("birthdayd version %s (commit: %s)\n", version, commit)
	return exitSuccess
}
