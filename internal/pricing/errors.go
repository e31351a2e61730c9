package pricing

import (
	"errors"
	"fmt"
)

// ErrNotFound signals that a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrNoMatch signals that search produced no candidate clearing the
// similarity threshold. It is a terminal outcome for the cycle, not a fault,
// and is never cached.
var ErrNoMatch = errors.New("no acceptable source match")

// TransientError wraps a network/timeout/page-shape failure. Items hit by a
// transient error stay Pending and retry on the next cycle.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError. Returns nil for a nil err.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
