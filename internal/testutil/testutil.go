// Package testutil provides shared test helpers for birthdayd.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/djlord-it/birthday-reminder/internal/domain"
)

// FakeClock provides deterministic time for testing.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewFakeClock creates a FakeClock set to the given time.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// TestContext returns a context with a 5-second timeout.
// The context is cancelled when the test completes.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// Record returns a birthday record with a fresh ID.
func Record(name string, year int, month time.Month, day int) domain.BirthdayRecord {
	return domain.BirthdayRecord{
		ID:          uuid.New(),
		Name:        name,
		DateOfBirth: domain.NewDate(year, month, day),
	}
}

// Job returns the notification job for rec due on target.
func Job(rec domain.BirthdayRecord, target time.Time) domain.NotificationJob {
	return domain.NotificationJob{Record: rec, TargetDate: target}
}
