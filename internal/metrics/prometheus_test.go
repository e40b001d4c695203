package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T) (*PrometheusSink, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)
	return sink, reg
}

func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m.GetLabel(), labels) {
				return m
			}
		}
	}
	return nil
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	m := findMetric(t, reg, name, labels)
	if m == nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func matchLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; !ok || v != p.GetValue() {
			return false
		}
	}
	return true
}

func TestPrometheusSink_Registration(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.NotNil(t, NewPrometheusSink(reg))
}

func TestPrometheusSink_RunsByTrigger(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.RunStarted("scheduled")
	sink.RunStarted("scheduled")
	sink.RunStarted("manual")

	assert.Equal(t, 2.0, counterValue(t, reg, "birthday_scheduler_runs_total", map[string]string{"trigger": "scheduled"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "birthday_scheduler_runs_total", map[string]string{"trigger": "manual"}))
}

func TestPrometheusSink_RunCompleted(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.RunCompleted("scheduled", 100*time.Millisecond, 2, nil)
	assert.Equal(t, 0.0, counterValue(t, reg, "birthday_scheduler_run_errors_total", map[string]string{"trigger": "scheduled"}))
	assert.Equal(t, 2.0, counterValue(t, reg, "birthday_scheduler_jobs_due_total", nil))

	sink.RunCompleted("scheduled", 100*time.Millisecond, 0, errors.New("db error"))
	assert.Equal(t, 1.0, counterValue(t, reg, "birthday_scheduler_run_errors_total", map[string]string{"trigger": "scheduled"}))

	m := findMetric(t, reg, "birthday_scheduler_run_duration_seconds", nil)
	require.NotNil(t, m)
	assert.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
}

func TestPrometheusSink_NotificationOutcome(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.NotificationOutcome("sent")
	sink.NotificationOutcome("sent")
	sink.NotificationOutcome("failed")

	assert.Equal(t, 2.0, counterValue(t, reg, "birthday_notifier_outcomes_total", map[string]string{"outcome": "sent"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "birthday_notifier_outcomes_total", map[string]string{"outcome": "failed"}))
}

func TestPrometheusSink_SendDurationByClass(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.SendCompleted("ok", 300*time.Millisecond)
	sink.SendCompleted("timeout", 30*time.Second)

	ok := findMetric(t, reg, "birthday_notifier_send_duration_seconds", map[string]string{"class": "ok"})
	require.NotNil(t, ok)
	assert.Equal(t, uint64(1), ok.GetHistogram().GetSampleCount())
	assert.InDelta(t, 0.3, ok.GetHistogram().GetSampleSum(), 1e-9)
}

func TestPrometheusSink_InFlight(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.InFlightIncr()
	sink.InFlightIncr()
	sink.InFlightDecr()

	m := findMetric(t, reg, "birthday_notifier_in_flight", nil)
	require.NotNil(t, m)
	assert.Equal(t, 1.0, m.GetGauge().GetValue())
}

func TestPrometheusSink_Leader(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.LeaderStatusChanged(true)
	sink.LeaderAcquired()

	m := findMetric(t, reg, "birthday_leader_is_leader", nil)
	require.NotNil(t, m)
	assert.Equal(t, 1.0, m.GetGauge().GetValue())
	assert.Equal(t, 1.0, counterValue(t, reg, "birthday_leader_acquired_total", nil))

	sink.LeaderStatusChanged(false)
	sink.LeaderLost("conn_lost")

	m = findMetric(t, reg, "birthday_leader_is_leader", nil)
	require.NotNil(t, m)
	assert.Equal(t, 0.0, m.GetGauge().GetValue())
	assert.Equal(t, 1.0, counterValue(t, reg, "birthday_leader_lost_total", map[string]string{"reason": "conn_lost"}))
}

func TestPrometheusSink_DuplicateRegistration_NoPanic(t *testing.T) {
	// The second registration fails for every metric but must not panic.
	reg := prometheus.NewRegistry()

	assert.NotNil(t, NewPrometheusSink(reg))
	assert.NotNil(t, NewPrometheusSink(reg))
}

// Verify PrometheusSink implements Sink interface.
var _ Sink = (*PrometheusSink)(nil)
