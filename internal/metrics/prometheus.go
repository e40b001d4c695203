package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// Scheduler metrics
	runsTotal      *prometheus.CounterVec
	runErrorsTotal *prometheus.CounterVec
	jobsDueTotal   prometheus.Counter
	runDuration    prometheus.Histogram

	// Notifier metrics
	outcomesTotal *prometheus.CounterVec
	sendDuration  *prometheus.HistogramVec
	inFlight      prometheus.Gauge

	// Leader election metrics
	leaderStatus        prometheus.Gauge
	leaderAcquiredTotal prometheus.Counter
	leaderLostTotal     *prometheus.CounterVec
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initSchedulerMetrics(reg)
	s.initNotifierMetrics(reg)
	s.initLeaderMetrics(reg)
	return s
}

func (s *PrometheusSink) initSchedulerMetrics(reg prometheus.Registerer) {
	s.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "birthday_scheduler_runs_total",
		Help: "Total number of reminder runs started.",
	}, []string{"trigger"})
	s.runErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "birthday_scheduler_run_errors_total",
		Help: "Total number of reminder runs aborted before dispatch.",
	}, []string{"trigger"})
	s.jobsDueTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "birthday_scheduler_jobs_due_total",
		Help: "Total number of notification jobs produced by runs.",
	})
	s.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "birthday_scheduler_run_duration_seconds",
		Help:    "Duration of each reminder run in seconds, dispatch included.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})

	s.register(reg, s.runsTotal, "birthday_scheduler_runs_total")
	s.register(reg, s.runErrorsTotal, "birthday_scheduler_run_errors_total")
	s.register(reg, s.jobsDueTotal, "birthday_scheduler_jobs_due_total")
	s.register(reg, s.runDuration, "birthday_scheduler_run_duration_seconds")
}

func (s *PrometheusSink) initNotifierMetrics(reg prometheus.Registerer) {
	s.outcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "birthday_notifier_outcomes_total",
		Help: "Total number of notification outcomes by status.",
	}, []string{"outcome"})

	s.sendDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "birthday_notifier_send_duration_seconds",
		Help:    "Mail transport latency in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"class"})

	s.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "birthday_notifier_in_flight",
		Help: "Number of notifications currently being sent.",
	})

	s.register(reg, s.outcomesTotal, "birthday_notifier_outcomes_total")
	s.register(reg, s.sendDuration, "birthday_notifier_send_duration_seconds")
	s.register(reg, s.inFlight, "birthday_notifier_in_flight")
}

func (s *PrometheusSink) initLeaderMetrics(reg prometheus.Registerer) {
	s.leaderStatus = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "birthday_leader_is_leader",
		Help: "1 if this instance runs scheduled checks, 0 otherwise.",
	})
	s.leaderAcquiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "birthday_leader_acquired_total",
		Help: "Total number of times this instance became leader.",
	})
	s.leaderLostTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "birthday_leader_lost_total",
		Help: "Total number of times this instance lost leadership, by reason.",
	}, []string{"reason"})

	s.register(reg, s.leaderStatus, "birthday_leader_is_leader")
	s.register(reg, s.leaderAcquiredTotal, "birthday_leader_acquired_total")
	s.register(reg, s.leaderLostTotal, "birthday_leader_lost_total")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		slog.Warn("failed to register metric", "component", "metrics", "metric", name, "error", err)
	}
}

// Scheduler metrics implementation

func (s *PrometheusSink) RunStarted(trigger string) {
	s.runsTotal.WithLabelValues(trigger).Inc()
}

func (s *PrometheusSink) RunCompleted(trigger string, duration time.Duration, jobsDue int, err error) {
	s.runDuration.Observe(duration.Seconds())
	s.jobsDueTotal.Add(float64(jobsDue))
	if err != nil {
		s.runErrorsTotal.WithLabelValues(trigger).Inc()
	}
}

// Notifier metrics implementation

func (s *PrometheusSink) NotificationOutcome(outcome string) {
	s.outcomesTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) SendCompleted(class string, duration time.Duration) {
	s.sendDuration.WithLabelValues(class).Observe(duration.Seconds())
}

func (s *PrometheusSink) InFlightIncr() {
	s.inFlight.Inc()
}

func (s *PrometheusSink) InFlightDecr() {
	s.inFlight.Dec()
}

// Leader election metrics implementation

func (s *PrometheusSink) LeaderStatusChanged(isLeader bool) {
	if isLeader {
		s.leaderStatus.Set(1)
	} else {
		s.leaderStatus.Set(0)
	}
}

func (s *PrometheusSink) LeaderAcquired() {
	s.leaderAcquiredTotal.Inc()
}

func (s *PrometheusSink) LeaderLost(reason string) {
	s.leaderLostTotal.WithLabelValues(reason).Inc()
}
