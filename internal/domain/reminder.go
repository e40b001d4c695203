package domain

import "time"

// ReminderWindow is derived for every run and never persisted.
type ReminderWindow struct {
	ReferenceInstant time.Time
	HorizonDays      int

	// Target is the calendar date HorizonDays after ReferenceInstant,
	// at midnight in the reference's location.
	Target time.Time
}

// NotificationJob is one unit of dispatch work: one per matching record per run.
type NotificationJob struct {
	Record     BirthdayRecord
	TargetDate time.Time
}

type OutcomeStatus string

const (
	OutcomeSent       OutcomeStatus = "sent"
	OutcomeFailed     OutcomeStatus = "failed"
	OutcomeSuppressed OutcomeStatus = "suppressed" // already sent for this occurrence
)

// Outcome is the result of dispatching a single NotificationJob.
type Outcome struct {
	Job    NotificationJob
	Status OutcomeStatus
	Reason string // set when Status is OutcomeFailed or OutcomeSuppressed
}

type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// Report describes one scheduler run.
type Report struct {
	Trigger    Trigger
	StartedAt  time.Time
	FinishedAt time.Time

	Window   ReminderWindow
	Jobs     []NotificationJob
	Outcomes []Outcome
}

// Count returns how many outcomes have the given status.
func (r Report) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
