package shared

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies a domain failure so callers can branch on the category
// without matching message text.
type Kind int

const (
	// KindUnknown is the zero value for errors that carry no classification.
	KindUnknown Kind = iota
	// KindNotFound indicates a referenced document or line is absent.
	KindNotFound
	// KindBusinessRule indicates an operation that the document lifecycle
	// forbids, such as editing a non-draft document.
	KindBusinessRule
	// KindValidation indicates malformed input rejected before any
	// database work started.
	KindValidation
	// KindPersistence indicates a storage-level failure. The enclosing
	// transaction rolls back and the caller may retry the whole operation.
	KindPersistence
)

// Error is the tagged error type used across the document engine.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// BusinessRule builds a KindBusinessRule error.
func BusinessRule(format string, args ...any) error {
	return &Error{Kind: KindBusinessRule, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a KindValidation error.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps a storage error with KindPersistence.
func Persistence(err error, context string) error {
	return &Error{Kind: KindPersistence, Message: context, Err: err}
}

// UniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func UniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// KindOf reports the classification of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
