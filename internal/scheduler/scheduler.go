// Package scheduler drives the birthday reminder runs.
//
// A run reads every record from the Store in one call, keeps the records
// whose birthday falls exactly HorizonDays after the reference instant and
// hands the resulting jobs to the Notifier. Scheduled runs are executed
// inline by the cadence loop, so they never overlap. On-demand runs
// (TriggerNow) are independent and may race with a scheduled run.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/djlord-it/birthday-reminder/internal/domain"
	"github.com/djlord-it/birthday-reminder/internal/matcher"
)

type Store interface {
	ListAll(ctx context.Context) ([]domain.BirthdayRecord, error)
}

// Notifier dispatches a batch of jobs and returns one outcome per job, in job order.
type Notifier interface {
	NotifyAll(ctx context.Context, jobs []domain.NotificationJob) []domain.Outcome
}

// ErrScheduleExhausted is returned by Run when the schedule has no next fire time.
var ErrScheduleExhausted = errors.New("scheduler: schedule has no next fire time")

// CronSchedule yields fire times; a zero time means there are none.
type CronSchedule interface {
	Next(after time.Time) time.Time
}

// MetricsSink records run metrics. Methods must not block.
type MetricsSink interface {
	RunStarted(trigger string)
	RunCompleted(trigger string, duration time.Duration, jobsDue int, err error)
}

type Config struct {
	Schedule    CronSchedule
	HorizonDays int
	Matcher     matcher.Matcher

	// Location is the zone whose calendar date defines "today".
	// nil keeps the location of the instant passed in.
	Location *time.Location
}

type Scheduler struct {
	config   Config
	store    Store
	notifier Notifier
	metrics  MetricsSink // optional, nil = disabled
	logger   *slog.Logger
	clock    func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(config Config, store Store, notifier Notifier) *Scheduler {
	if config.HorizonDays == 0 {
		config.HorizonDays = matcher.DefaultHorizonDays
	}
	return &Scheduler{
		config:   config,
		store:    store,
		notifier: notifier,
		logger:   slog.Default().With("component", "scheduler"),
		clock:    time.Now,
	}
}

// WithMetrics attaches a metrics sink to the scheduler.
func (s *Scheduler) WithMetrics(sink MetricsSink) *Scheduler {
	s.metrics = sink
	return s
}

func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger.With("component", "scheduler")
	return s
}

// CheckDue returns one job per record whose birthday is HorizonDays after now,
// in Store order. A Store failure is returned marked with
// domain.ErrStoreUnavailable and no jobs.
func (s *Scheduler) CheckDue(ctx context.Context, now time.Time) ([]domain.NotificationJob, error) {
	window := matcher.Window(s.reference(now), s.config.HorizonDays)

	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "list records"), domain.ErrStoreUnavailable)
	}

	var jobs []domain.NotificationJob
	for _, rec := range records {
		if rec.DateOfBirth.IsZero() {
			s.logger.Warn("record has no date of birth, skipping", "id", rec.ID, "name", rec.Name)
			continue
		}
		if s.config.Matcher.MatchesTarget(rec.DateOfBirth, window.Target) {
			jobs = append(jobs, domain.NotificationJob{
				Record:     rec,
				TargetDate: window.Target,
			})
		}
	}
	return jobs, nil
}

// Execute performs one full run: CheckDue followed by dispatch of every job.
// If the Store read fails the run aborts before any dispatch and the error
// is returned alongside a report without jobs.
func (s *Scheduler) Execute(ctx context.Context, now time.Time, trigger domain.Trigger) (domain.Report, error) {
	start := s.clock()
	if s.metrics != nil {
		s.metrics.RunStarted(string(trigger))
	}

	report := domain.Report{
		Trigger:   trigger,
		StartedAt: start,
		Window:    matcher.Window(s.reference(now), s.config.HorizonDays),
	}

	jobs, err := s.CheckDue(ctx, now)
	if err != nil {
		report.FinishedAt = s.clock()
		if s.metrics != nil {
			s.metrics.RunCompleted(string(trigger), report.FinishedAt.Sub(start), 0, err)
		}
		s.logger.Error("run aborted, no reminders dispatched",
			"trigger", trigger,
			"target", report.Window.Target.Format(domain.DateLayout),
			"error", err)
		return report, err
	}

	report.Jobs = jobs
	if len(jobs) > 0 {
		report.Outcomes = s.notifier.NotifyAll(ctx, jobs)
	}
	report.FinishedAt = s.clock()

	if s.metrics != nil {
		s.metrics.RunCompleted(string(trigger), report.FinishedAt.Sub(start), len(jobs), nil)
	}
	s.logger.Info("run complete",
		"trigger", trigger,
		"target", report.Window.Target.Format(domain.DateLayout),
		"due", len(jobs),
		"sent", report.Count(domain.OutcomeSent),
		"failed", report.Count(domain.OutcomeFailed),
		"suppressed", report.Count(domain.OutcomeSuppressed),
		"duration", report.FinishedAt.Sub(start))
	return report, nil
}

// TriggerNow runs a check immediately, outside the cadence.
func (s *Scheduler) TriggerNow(ctx context.Context) (domain.Report, error) {
	return s.Execute(ctx, s.clock(), domain.TriggerManual)
}

// Run blocks, executing a run at every fire time of the configured schedule,
// until ctx is cancelled. A run in progress when ctx is cancelled completes
// before Run returns. Run errors are logged; the next fire time is the retry.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.config.Schedule == nil {
		return errors.New("scheduler: no schedule configured")
	}

	last := s.clock()
	s.logger.Info("started", "next_run", s.config.Schedule.Next(last), "horizon_days", s.config.HorizonDays)

	for {
		next := s.config.Schedule.Next(last)
		if next.IsZero() {
			return errors.Wrapf(ErrScheduleExhausted, "after %s", last.Format(time.RFC3339))
		}
		timer := time.NewTimer(next.Sub(s.clock()))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("stopped")
			return ctx.Err()
		case <-timer.C:
		}

		now := s.clock()
		if now.Before(next) {
			now = next
		}
		// The run is not tied to ctx: a started run finishes even if shutdown begins.
		_, _ = s.Execute(context.WithoutCancel(ctx), now, domain.TriggerScheduled)
		last = now
	}
}

// Start launches Run in the background. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("cadence loop exited", "error", err)
		}
	}()
}

// Stop halts the cadence loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) reference(now time.Time) time.Time {
	if s.config.Location != nil {
		return now.In(s.config.Location)
	}
	return now
}
