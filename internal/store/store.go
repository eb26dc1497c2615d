// Package store is the domain core: identities, posts, comments, the
// like relation and per-session view tracking, all backed by one sqlite
// database. Every multi-step mutation runs inside a single transaction
// and is rolled back whole on any failure.
package store

import (
	"context"
	"database/sql"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Store struct {
	db *sql.DB

	// now is injected so time-derived behavior is testable.
	now func() time.Time

	hash   func(password string) (string, error)
	verify func(hash, password string) bool
}

func New(db *sql.DB) *Store {
	return &Store{
		db:     db,
		now:    func() time.Time { return time.Now().UTC() },
		hash:   hashPassword,
		verify: checkPassword,
	}
}

// SetClock replaces the time source, for tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &TransactionError{Op: op, Err: err}
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return &TransactionError{Op: op, Err: err}
	}
	return nil
}

// --- password boundary (bcrypt) ---

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
