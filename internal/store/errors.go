package store

import (
	"context"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("already exists")

	// ErrTransient marks lock contention, busy timeouts and deadline
	// expiry. The caller may retry the whole operation.
	ErrTransient = errors.New("transient store error")
)

// VersionConflictError is returned by the version guard when the caller's
// expected version does not match the stored one.
type VersionConflictError struct {
	IssueID  int64
	Expected int
	Current  int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on issue %d: expected %d, current version is %d", e.IssueID, e.Expected, e.Current)
}

func notFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, ErrNotFound)
}

// classify tags driver errors with the sentinels above so callers can use
// errors.Is without knowing about SQLite result codes.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", ErrTransient, err)
		case sqlite3.SQLITE_CONSTRAINT:
			if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
				return fmt.Errorf("%w: %w", ErrDuplicate, err)
			}
		}
	}
	return err
}
