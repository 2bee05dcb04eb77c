package goals

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is returned for empty or malformed input.
	ErrValidation = errors.New("invalid goal")
	// ErrNotFound is returned when an operation names an unknown goal.
	ErrNotFound = errors.New("goal not found")
	// ErrCapacityExceeded is returned when a move would put more than
	// FocusCap goals in the active bucket.
	ErrCapacityExceeded = errors.New("focus cap reached")
	// ErrOutOfRange is returned when a reorder index is outside the bucket.
	ErrOutOfRange = errors.New("index out of range")
	// ErrPersistence is matched by every *PersistenceError.
	ErrPersistence = errors.New("persistence failed")
)

// PersistenceError reports a storage failure after the in-memory change
// was already applied. The Store does not roll back.
type PersistenceError struct {
	Op  string
	IDs []string
	Err error
}

func (e *PersistenceError) Error() string {
	if len(e.IDs) == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, strings.Join(e.IDs, ","), e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrPersistence) match.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Notice classifies err for display. Capacity and persistence failures
// are worth telling the user about; the returned bool is true for those.
// Anything else points at a UI/Store desync and should be logged, so a
// generic message is returned instead.
func Notice(err error) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, ErrCapacityExceeded):
		return fmt.Sprintf("Only %d goals can be active at once. Finish or park one first.", FocusCap), true
	case errors.Is(err, ErrPersistence):
		return "Couldn't save your change. It is kept for now; try again.", true
	case errors.Is(err, ErrValidation):
		return err.Error(), true
	default:
		return "Something went out of sync. Reloading may help.", false
	}
}
