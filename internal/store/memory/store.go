// Package memory is a process-local record store for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/djlord-it/birthday-reminder/internal/api"
	"github.com/djlord-it/birthday-reminder/internal/domain"
	"github.com/djlord-it/birthday-reminder/internal/scheduler"
)

// Store keeps records in insertion order.
type Store struct {
	mu      sync.Mutex
	records []domain.BirthdayRecord
	failErr error
}

func New(records ...domain.BirthdayRecord) *Store {
	return &Store{records: append([]domain.BirthdayRecord(nil), records...)}
}

// FailWith makes every subsequent call fail with err marked as
// domain.ErrStoreUnavailable. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *Store) ListAll(ctx context.Context) ([]domain.BirthdayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return append([]domain.BirthdayRecord(nil), s.records...), nil
}

func (s *Store) Create(ctx context.Context, rec domain.BirthdayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return err
	}
	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return errors.Wrapf(domain.ErrNotFound, "birthday %s", id)
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.check(ctx)
}

func (s *Store) check(ctx context.Context) error {
	if s.failErr != nil {
		return errors.Mark(errors.Wrap(s.failErr, "memory store"), domain.ErrStoreUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return errors.Mark(errors.Wrap(err, "memory store"), domain.ErrStoreUnavailable)
	}
	return nil
}

var (
	_ scheduler.Store = (*Store)(nil)
	_ api.Store       = (*Store)(nil)
)
