package main

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/djlord-it/birthday-reminder/internal/api"
	"github.com/djlord-it/birthday-reminder/internal/circuitbreaker"
	"github.com/djlord-it/birthday-reminder/internal/config"
	"github.com/djlord-it/birthday-reminder/internal/cron"
	"github.com/djlord-it/birthday-reminder/internal/domain"
	"github.com/djlord-it/birthday-reminder/internal/leaderelection"
	"github.com/djlord-it/birthday-reminder/internal/matcher"
	"github.com/djlord-it/birthday-reminder/internal/metrics"
	"github.com/djlord-it/birthday-reminder/internal/notifier"
	"github.com/djlord-it/birthday-reminder/internal/scheduler"
	"github.com/djlord-it/birthday-reminder/internal/sentmark"
	"github.com/djlord-it/birthday-reminder/internal/store/memory"
	"github.com/djlord-it/birthday-reminder/internal/store/postgres"

	_ "github.com/lib/pq"
)

// recordStore is what every store driver provides.
type recordStore interface {
	ListAll(ctx context.Context) ([]domain.BirthdayRecord, error)
	Create(ctx context.Context, rec domain.BirthdayRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	Ping(ctx context.Context) error
}

// app holds the wired components of a running birthdayd.
type app struct {
	logger *slog.Logger

	scheduler     *scheduler.Scheduler
	elector       *leaderelection.Elector // nil when leader election is disabled
	httpServer    *http.Server
	metricsServer *http.Server // nil when metrics are disabled

	closers []func() error

	stopElector func()
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// logConfigWarnings logs operator-facing warnings about risky but valid settings.
func logConfigWarnings(cfg config.Config, logger *slog.Logger) {
	if cfg.MailTransport == "log" {
		logger.Warn("MAIL_TRANSPORT=log: reminders are written to the log and never emailed")
	}

	if cfg.StoreDriver == "memory" {
		logger.Warn("STORE_DRIVER=memory: birthdays are lost when the process exits")
	}

	if !cfg.DedupeEnabled {
		logger.Warn("DEDUPE_ENABLED=false: a manual check on the same day as a scheduled run emails the same reminders again")
	} else if cfg.RedisAddr == "" {
		logger.Info("DEDUPE_ENABLED=true without REDIS_ADDR: sent markers are kept in memory and forgotten on restart")
	}

	if cfg.CircuitBreakerThreshold == 0 {
		logger.Info("CIRCUIT_BREAKER_THRESHOLD=0: circuit breaker disabled")
	}

	if !cfg.MetricsEnabled {
		logger.Info("METRICS_ENABLED=false: metrics disabled")
	}
}

// openStore returns the configured store. db is nil for the memory driver.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (st recordStore, db *sql.DB, closeFn func() error, err error) {
	if cfg.StoreDriver == "memory" {
		logger.Info("store: using in-memory records")
		return memory.New(), nil, func() error { return nil }, nil
	}

	db, err = sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "open database")
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	logger.Info("store: db pool configured",
		"max_open", cfg.DBMaxOpenConns,
		"max_idle", cfg.DBMaxIdleConns,
		"max_lifetime", cfg.DBConnMaxLifetime,
		"max_idle_time", cfg.DBConnMaxIdleTime,
	)

	pg := postgres.New(db, cfg.DBOpTimeout)
	if err := pg.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, nil, nil, errors.Wrap(err, "connect to database")
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}

	return pg, db, db.Close, nil
}

func newTransport(cfg config.Config, logger *slog.Logger) (notifier.Transport, error) {
	switch cfg.MailTransport {
	case "smtp":
		return notifier.NewSMTPTransport(notifier.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			TLSPolicy: cfg.SMTPTLSPolicy,
			Timeout:   cfg.NotifySendTimeout,
		})
	case "webhook":
		return notifier.NewWebhookTransport(cfg.MailWebhookURL, cfg.MailWebhookSecret, cfg.MailWebhookTimeout), nil
	case "log":
		return notifier.NewLogTransport(logger), nil
	default:
		return nil, errors.Newf("unknown mail transport %q", cfg.MailTransport)
	}
}

// build wires every component from cfg. Nothing is started.
func build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	st, db, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	var sink metrics.Sink = metrics.NewNoopSink()
	if cfg.MetricsEnabled {
		sink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)

		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.Handler())
		a.metricsServer = &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		logger.Info("metrics enabled", "port", cfg.MetricsPort, "path", cfg.MetricsPath)
	}

	transport, err := newTransport(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	notif := notifier.New(notifier.Config{
		From:        cfg.MailFrom,
		To:          cfg.NotificationEmail,
		HorizonDays: cfg.ReminderHorizonDays,
		SendTimeout: cfg.NotifySendTimeout,
		Concurrency: cfg.NotifyConcurrency,
	}, transport).
		WithMetrics(sink).
		WithLogger(logger)

	if cfg.CircuitBreakerThreshold > 0 {
		notif = notif.WithBreaker(circuitbreaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown), cfg.MailTransport)
	}

	var redisMarker *sentmark.RedisMarker
	if cfg.DedupeEnabled {
		if cfg.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
			})
			a.closers = append(a.closers, client.Close)
			redisMarker = sentmark.NewRedisMarker(client, cfg.DedupeTTL)
			if err := redisMarker.Ping(ctx); err != nil {
				// Claims fail open, so an unreachable Redis only loses dedupe.
				logger.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "error", err)
			}
			notif = notif.WithMarker(redisMarker)
			logger.Info("dedupe enabled", "backend", "redis", "addr", cfg.RedisAddr, "ttl", cfg.DedupeTTL)
		} else {
			notif = notif.WithMarker(sentmark.NewMemoryMarker(cfg.DedupeTTL))
			logger.Info("dedupe enabled", "backend", "memory", "ttl", cfg.DedupeTTL)
		}
	}

	sched, err := cron.NewParser().Parse(cfg.ReminderSchedule, cfg.ReminderTimezone)
	if err != nil {
		a.Close()
		return nil, err
	}
	policy, err := matcher.ParseLeapDayPolicy(cfg.LeapDayPolicy)
	if err != nil {
		a.Close()
		return nil, errors.Wrap(err, "leap day policy")
	}
	m := matcher.New(policy)

	a.scheduler = scheduler.New(scheduler.Config{
		Schedule:    sched,
		HorizonDays: cfg.ReminderHorizonDays,
		Matcher:     m,
		Location:    sched.Location(),
	}, st, notif).
		WithMetrics(sink).
		WithLogger(logger)

	if cfg.LeaderElectionEnabled && db != nil {
		a.elector = leaderelection.New(db, leaderelection.Config{
			LockKey:           cfg.LeaderLockKey,
			RetryInterval:     cfg.LeaderRetryInterval,
			HeartbeatInterval: cfg.LeaderHeartbeatInterval,
		}, a.scheduler).
			WithMetrics(sink).
			WithLogger(logger)
	}

	handler := api.NewHandler(st, a.scheduler).
		WithHealthCheck("store", st).
		WithReminderSettings(m, cfg.ReminderHorizonDays, sched.Location()).
		WithLogger(logger)
	if redisMarker != nil {
		handler = handler.WithHealthCheck("redis", redisMarker)
	}

	gin.SetMode(gin.ReleaseMode)
	a.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(api.RouterConfig{AllowOrigins: cfg.CORSAllowOrigins}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// StartServers starts the HTTP API and, if enabled, the metrics server.
func (a *app) StartServers() {
	serve := func(name string, srv *http.Server) {
		a.logger.Info(name+" server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(name+" server error", "error", err)
		}
	}

	go serve("http", a.httpServer)
	if a.metricsServer != nil {
		go serve("metrics", a.metricsServer)
	}
}

// StartScheduler runs scheduled checks directly, or only while this
// instance holds the leader lock when leader election is enabled.
func (a *app) StartScheduler(ctx context.Context) {
	if a.elector == nil {
		a.scheduler.Start(ctx)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.elector.Run(ctx)
	}()
	a.stopElector = func() {
		cancel()
		<-done
	}
}

// Shutdown stops the scheduler first, waiting for an in-flight run, then the
// HTTP API, then the metrics server.
func (a *app) Shutdown(timeout time.Duration) {
	a.logger.Info("stopping scheduler...")
	if a.stopElector != nil {
		a.stopElector()
	}
	a.scheduler.Stop()
	a.logger.Info("scheduler stopped")

	a.logger.Info("stopping http server...")
	a.shutdownServer(a.httpServer, timeout)
	a.logger.Info("http server stopped")

	if a.metricsServer != nil {
		a.logger.Info("stopping metrics server...")
		a.shutdownServer(a.metricsServer, timeout)
		a.logger.Info("metrics server stopped")
	}
}

func (a *app) shutdownServer(srv *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Error("server shutdown error", "addr", srv.Addr, "error", err)
	}
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
