package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrNotFound reports an operation against an id with no backing row.
var ErrNotFound = errors.New("not found")

// ErrInvalidQuery reports unusable pagination or filter input.
var ErrInvalidQuery = errors.New("invalid query")

// UnavailableError wraps a storage-layer failure (connection, I/O).
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string { return fmt.Sprintf("store unavailable: %v", e.Err) }
func (e *UnavailableError) Unwrap() error { return e.Err }

// ConstraintError wraps an integrity violation (uniqueness, FK).
type ConstraintError struct {
	Err error
}

func (e *ConstraintError) Error() string { return fmt.Sprintf("constraint violation: %v", e.Err) }
func (e *ConstraintError) Unwrap() error { return e.Err }

// classify maps driver errors onto the store taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return &ConstraintError{Err: err}
	}
	return &UnavailableError{Err: err}
}

// isForeignKeyViolation reports whether err is a FK integrity failure,
// i.e. the referenced feed item does not exist.
func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
