package sentmark

import (
	"context"
	"sync"
	"time"

	"github.com/djlord-it/birthday-reminder/internal/domain"
)

// MemoryMarker is a process-local marker. It only dedupes within one
// process lifetime.
type MemoryMarker struct {
	mu      sync.Mutex
	expires map[string]time.Time
	ttl     time.Duration
	clock   func() time.Time
}

func NewMemoryMarker(ttl time.Duration) *MemoryMarker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryMarker{
		expires: make(map[string]time.Time),
		ttl:     ttl,
		clock:   time.Now,
	}
}

// WithClock sets a custom clock function for testing.
func (m *MemoryMarker) WithClock(clock func() time.Time) *MemoryMarker {
	m.clock = clock
	return m
}

func (m *MemoryMarker) Claim(_ context.Context, job domain.NotificationJob) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	m.evict(now)

	key := Key(job)
	if _, ok := m.expires[key]; ok {
		return false, nil
	}
	m.expires[key] = now.Add(m.ttl)
	return true, nil
}

func (m *MemoryMarker) Release(_ context.Context, job domain.NotificationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.expires, Key(job))
	return nil
}

func (m *MemoryMarker) evict(now time.Time) {
	for k, exp := range m.expires {
		if !now.Before(exp) {
			delete(m.expires, k)
		}
	}
}
