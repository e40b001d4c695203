package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) RunStarted(trigger string)                                                   {}
func (n *NoopSink) RunCompleted(trigger string, duration time.Duration, jobsDue int, err error) {}
func (n *NoopSink) NotificationOutcome(outcome string)                                          {}
func (n *NoopSink) SendCompleted(class string, duration time.Duration)                          {}
func (n *NoopSink) InFlightIncr()                                                               {}
func (n *NoopSink) InFlightDecr()                                                               {}
func (n *NoopSink) LeaderStatusChanged(isLeader bool)                                           {}
func (n *NoopSink) LeaderAcquired()                                                             {}
func (n *NoopSink) LeaderLost(reason string)                                                    {}
