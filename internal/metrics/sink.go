package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate errors.
// If the metrics backend is unavailable, implementations log warnings and continue.
type Sink interface {
	// Scheduler metrics
	RunStarted(trigger string)
	RunCompleted(trigger string, duration time.Duration, jobsDue int, err error)

	// Notifier metrics
	NotificationOutcome(outcome string)
	SendCompleted(class string, duration time.Duration)
	InFlightIncr()
	InFlightDecr()

	// Leader election metrics
	LeaderStatusChanged(isLeader bool)
	LeaderAcquired()
	LeaderLost(reason string)
}
