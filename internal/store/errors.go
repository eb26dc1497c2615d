package store

import (
	"errors"
	"fmt"

	"github.com/AndtsI4/CyberForum/internal/access"
)

var (
	// ErrAuthFailure is deliberately generic so callers cannot learn
	// whether the email or the password was wrong.
	ErrAuthFailure = errors.New("wrong email or password")

	ErrNotFound = errors.New("not found")

	ErrAuthRequired = access.ErrAuthRequired
	ErrForbidden    = access.ErrForbidden
)

// ValidationError reports a single bad field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// DuplicateError reports a username or email collision.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return e.Field + " already taken"
}

// TransactionError wraps a store-level failure inside a multi-step
// mutation. The transaction it came from has been rolled back.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }
