// Package leaderelection makes sure only one birthdayd replica runs
// scheduled reminder checks at a time.
//
// A single Postgres session-scoped advisory lock determines the leader.
// The lock is held for the lifetime of a dedicated database connection;
// there is no renewal or TTL. If the connection dies, Postgres releases the
// lock server-side (timing depends on TCP keepalive settings).
//
// The heartbeat ping only detects local connection death so the leader can
// stop its scheduler promptly. It does NOT renew the lock.
package leaderelection

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

const (
	LostShutdown = "shutdown"
	LostConn     = "conn_lost"
)

// MetricsSink records leader election metrics. Methods must not block.
type MetricsSink interface {
	LeaderStatusChanged(isLeader bool)
	LeaderAcquired()
	LeaderLost(reason string)
}

// Duties are started when this instance is elected and stopped when it is demoted.
type Duties interface {
	Start(ctx context.Context)
	Stop()
}

type Config struct {
	LockKey int64
	// RetryInterval is how often a follower attempts to take the lock.
	RetryInterval time.Duration
	// HeartbeatInterval is how often the leader pings its dedicated connection.
	HeartbeatInterval time.Duration
}

type Elector struct {
	db      *sql.DB
	config  Config
	duties  Duties
	metrics MetricsSink // optional, nil = disabled
	logger  *slog.Logger
}

// New creates an Elector that runs duties while it holds the lock.
// Duties.Stop must block until the duties are fully stopped and must be idempotent.
func New(db *sql.DB, config Config, duties Duties) *Elector {
	return &Elector{
		db:     db,
		config: config,
		duties: duties,
		logger: slog.Default().With("component", "leader"),
	}
}

// WithMetrics attaches a metrics sink to the elector.
func (e *Elector) WithMetrics(sink MetricsSink) *Elector {
	e.metrics = sink
	return e
}

func (e *Elector) WithLogger(logger *slog.Logger) *Elector {
	e.logger = logger.With("component", "leader")
	return e
}

// Run is the election loop. It blocks until ctx is cancelled, and stops the
// duties before returning if this instance was leading.
func (e *Elector) Run(ctx context.Context) {
	e.logger.Info("election loop started",
		"lock_key", e.config.LockKey,
		"retry", e.config.RetryInterval,
		"heartbeat", e.config.HeartbeatInterval,
	)

	for {
		reason := e.runOnce(ctx)

		if ctx.Err() != nil {
			e.logger.Info("election loop stopped")
			return
		}

		if reason != "" {
			e.logger.Warn("lost leadership", "reason", reason, "retry_in", e.config.RetryInterval)
		}

		select {
		case <-ctx.Done():
			e.logger.Info("election loop stopped")
			return
		case <-time.After(e.config.RetryInterval):
		}
	}
}

// runOnce attempts to acquire the advisory lock and hold it.
// Returns the reason leadership was lost ("" if the lock was not acquired).
func (e *Elector) runOnce(ctx context.Context) string {
	if ctx.Err() != nil {
		return ""
	}

	// Advisory locks are session-scoped: a dedicated connection is required.
	conn, err := e.db.Conn(ctx)
	if err != nil {
		e.logger.Warn("dedicated connection unavailable", "error", err)
		return ""
	}
	defer conn.Close()

	var acquired bool
	err = conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", e.config.LockKey).Scan(&acquired)
	if err != nil {
		e.logger.Warn("advisory lock query failed", "error", err)
		return ""
	}
	if !acquired {
		e.logger.Debug("lock held by another instance", "lock_key", e.config.LockKey)
		return ""
	}

	e.logger.Info("acquired leadership; starting scheduled checks", "lock_key", e.config.LockKey)
	if e.metrics != nil {
		e.metrics.LeaderStatusChanged(true)
		e.metrics.LeaderAcquired()
	}

	leaderCtx, cancelLeader := context.WithCancel(ctx)
	e.duties.Start(leaderCtx)

	reason := e.holdLock(ctx, conn)

	cancelLeader()
	e.duties.Stop()
	e.unlock(conn)

	if e.metrics != nil {
		e.metrics.LeaderStatusChanged(false)
		e.metrics.LeaderLost(reason)
	}

	e.logger.Info("released leadership", "lock_key", e.config.LockKey, "reason", reason)
	return reason
}

// unlock releases the lock explicitly: closing a *sql.Conn returns the
// session to the pool, which would otherwise keep holding it.
func (e *Elector) unlock(conn *sql.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", e.config.LockKey); err != nil {
		e.logger.Debug("advisory unlock failed", "error", err)
	}
}

// holdLock blocks while pinging the dedicated connection.
// Returns the reason the lock was lost.
func (e *Elector) holdLock(ctx context.Context, conn *sql.Conn) string {
	ticker := time.NewTicker(e.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return LostShutdown
		case <-ticker.C:
			if err := conn.PingContext(ctx); err != nil {
				if ctx.Err() != nil {
					return LostShutdown
				}
				e.logger.Error("dedicated connection ping failed", "error", err)
				return LostConn
			}
		}
	}
}
