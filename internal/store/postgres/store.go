// Package postgres is the PostgreSQL record store.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/djlord-it/birthday-reminder/internal/api"
	"github.com/djlord-it/birthday-reminder/internal/domain"
	"github.com/djlord-it/birthday-reminder/internal/scheduler"
)

const defaultOpTimeout = 5 * time.Second

// Store implements scheduler.Store and api.Store using PostgreSQL.
type Store struct {
	db        *sql.DB
	opTimeout time.Duration
}

// New creates a new PostgreSQL store with the given database connection.
// opTimeout bounds every query; zero means five seconds.
func New(db *sql.DB, opTimeout time.Duration) *Store {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &Store{db: db, opTimeout: opTimeout}
}

// EnsureSchema creates the birthdays table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, querySchema); err != nil {
		return errors.Wrap(err, "ensure schema")
	}
	return nil
}

// ListAll returns every record ordered by name.
func (s *Store) ListAll(ctx context.Context) ([]domain.BirthdayRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryListAll)
	if err != nil {
		return nil, unavailable(err, "list birthdays")
	}
	defer rows.Close()

	var result []domain.BirthdayRecord
	for rows.Next() {
		var rec domain.BirthdayRecord
		var dob time.Time

		if err := rows.Scan(&rec.ID, &rec.Name, &dob, &rec.CreatedAt); err != nil {
			return nil, unavailable(err, "scan birthday")
		}
		rec.DateOfBirth = domain.NewDate(dob.Year(), dob.Month(), dob.Day())
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable(err, "list birthdays")
	}

	return result, nil
}

func (s *Store) Create(ctx context.Context, rec domain.BirthdayRecord) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, queryInsertBirthday,
		rec.ID,
		rec.Name,
		rec.DateOfBirth,
		rec.CreatedAt,
	)
	if err != nil {
		return unavailable(err, "insert birthday")
	}
	return nil
}

// Delete returns domain.ErrNotFound if no record has the given id.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var deletedID uuid.UUID
	err := s.db.QueryRowContext(ctx, queryDeleteBirthday, id).Scan(&deletedID)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(domain.ErrNotFound, "birthday %s", id)
	}
	if err != nil {
		return unavailable(err, "delete birthday")
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return unavailable(err, "ping")
	}
	return nil
}

func unavailable(err error, op string) error {
	return errors.Mark(errors.Wrap(err, op), domain.ErrStoreUnavailable)
}

// Compile-time interface assertions
var (
	_ scheduler.Store = (*Store)(nil)
	_ api.Store       = (*Store)(nil)
)
