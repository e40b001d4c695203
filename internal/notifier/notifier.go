// Package notifier turns NotificationJobs into reminder emails.
//
// Every job is dispatched independently: a failing or panicking send only
// affects its own Outcome. Sends are attempted at most once per run.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/djlord-it/birthday-reminder/internal/domain"
)

const defaultConcurrency = 8

// Message is a single outgoing email.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

//go:generate mockgen -destination=notifiermock/notifier.go -package=notifiermock . Transport,SentMarker

type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// SentMarker records which occurrences were already notified, across runs.
type SentMarker interface {
	// Claim returns false if the job's occurrence was already claimed.
	Claim(ctx context.Context, job domain.NotificationJob) (bool, error)
	Release(ctx context.Context, job domain.NotificationJob) error
}

// Breaker short-circuits sends while the transport keeps failing.
type Breaker interface {
	Allow(key string) error
	RecordSuccess(key string)
	RecordFailure(key string)
}

// MetricsSink defines the interface for recording notifier metrics.
// All methods must be non-blocking and fire-and-forget.
type MetricsSink interface {
	NotificationOutcome(outcome string)
	SendCompleted(class string, duration time.Duration)
	InFlightIncr()
	InFlightDecr()
}

type Config struct {
	From string
	// To is the fixed operator address; reminders never go to the birthday subject.
	To string

	HorizonDays int
	SendTimeout time.Duration
	Concurrency int
}

type Notifier struct {
	config     Config
	transport  Transport
	marker     SentMarker  // optional, nil = no cross-run dedupe
	breaker    Breaker     // optional
	breakerKey string
	metrics    MetricsSink // optional
	logger     *slog.Logger
}

func New(config Config, transport Transport) *Notifier {
	if config.Concurrency <= 0 {
		config.Concurrency = defaultConcurrency
	}
	return &Notifier{
		config:    config,
		transport: transport,
		logger:    slog.Default().With("component", "notifier"),
	}
}

func (n *Notifier) WithMarker(marker SentMarker) *Notifier {
	n.marker = marker
	return n
}

// WithBreaker guards the transport with a circuit breaker under key.
func (n *Notifier) WithBreaker(b Breaker, key string) *Notifier {
	n.breaker = b
	n.breakerKey = key
	return n
}

func (n *Notifier) WithMetrics(sink MetricsSink) *Notifier {
	n.metrics = sink
	return n
}

func (n *Notifier) WithLogger(logger *slog.Logger) *Notifier {
	n.logger = logger.With("component", "notifier")
	return n
}

// NotifyAll dispatches jobs in parallel and returns outcomes in job order.
func (n *Notifier) NotifyAll(ctx context.Context, jobs []domain.NotificationJob) []domain.Outcome {
	outcomes := make([]domain.Outcome, len(jobs))
	sem := make(chan struct{}, n.config.Concurrency)

	var wg sync.WaitGroup
	for i, job := range jobs {
		i, job := i, job
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = n.Notify(ctx, job)
		}()
	}
	wg.Wait()

	return outcomes
}

// Notify sends the reminder for one job. It never panics and never returns
// an error; failures are reported in the Outcome and logged with the
// record's name.
func (n *Notifier) Notify(ctx context.Context, job domain.NotificationJob) (outcome domain.Outcome) {
	outcome = domain.Outcome{Job: job}
	log := n.logger.With(
		"name", job.Record.Name,
		"record_id", job.Record.ID,
		"target", job.TargetDate.Format(domain.DateLayout),
	)

	if n.metrics != nil {
		n.metrics.InFlightIncr()
		defer n.metrics.InFlightDecr()
	}

	claimed := false
	defer func() {
		if r := recover(); r != nil {
			outcome.Status = domain.OutcomeFailed
			outcome.Reason = fmt.Sprintf("panic: %v", r)
			log.Error("reminder dispatch panicked", "panic", r)
			if claimed {
				n.release(ctx, job, log)
			}
		}
		if n.metrics != nil {
			n.metrics.NotificationOutcome(string(outcome.Status))
		}
	}()

	if n.marker != nil {
		ok, err := n.marker.Claim(ctx, job)
		switch {
		case err != nil:
			// Fail open: a duplicate reminder beats a missed one.
			log.Warn("sent marker unavailable, sending without dedupe", "error", err)
		case !ok:
			outcome.Status = domain.OutcomeSuppressed
			outcome.Reason = "already notified for this occurrence"
			log.Info("reminder suppressed, already sent")
			return outcome
		default:
			claimed = true
		}
	}

	if n.breaker != nil {
		if err := n.breaker.Allow(n.breakerKey); err != nil {
			outcome.Status = domain.OutcomeFailed
			outcome.Reason = err.Error()
			log.Error("reminder not sent", "error", err)
			if claimed {
				n.release(ctx, job, log)
			}
			return outcome
		}
	}

	sendCtx := ctx
	if n.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, n.config.SendTimeout)
		defer cancel()
	}

	start := time.Now()
	err := n.transport.Send(sendCtx, ComposeMessage(n.config, job))
	if n.metrics != nil {
		n.metrics.SendCompleted(sendClass(err), time.Since(start))
	}

	if err != nil {
		err = errors.Mark(errors.Wrapf(err, "send reminder for %s", job.Record.Name), domain.ErrTransport)
		if n.breaker != nil {
			n.breaker.RecordFailure(n.breakerKey)
		}
		if claimed {
			n.release(ctx, job, log)
		}
		outcome.Status = domain.OutcomeFailed
		outcome.Reason = err.Error()
		log.Error("reminder not sent", "error", err)
		return outcome
	}

	if n.breaker != nil {
		n.breaker.RecordSuccess(n.breakerKey)
	}
	outcome.Status = domain.OutcomeSent
	log.Info("reminder sent", "to", n.config.To)
	return outcome
}

func (n *Notifier) release(ctx context.Context, job domain.NotificationJob, log *slog.Logger) {
	if err := n.marker.Release(ctx, job); err != nil {
		log.Warn("failed to release sent marker", "error", err)
	}
}

// Send classes for the send duration metric.
const (
	SendClassOK              = "ok"
	SendClassTimeout         = "timeout"
	SendClassConnectionError = "connection_error"
	SendClassRejected        = "rejected"
	SendClassOtherError      = "other_error"
)

func sendClass(err error) string {
	if err == nil {
		return SendClassOK
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return SendClassTimeout
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") || strings.Contains(msg, "dial"):
		return SendClassConnectionError
	case strings.Contains(msg, "relay responded") || strings.Contains(msg, "550") || strings.Contains(msg, "553"):
		return SendClassRejected
	default:
		return SendClassOtherError
	}
}
