package reconcile

import (
	"errors"
	"fmt"
)

// ErrMalformedBatch is wrapped by every structural validation failure that
// rejects a whole confirm call before any store write happens.
var ErrMalformedBatch = errors.New("malformed import batch")

// ValidationError reports an import record that cannot be classified.
type ValidationError struct {
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
}

// NotFoundError reports an existing book that vanished between preview and confirm.
type NotFoundError struct {
	Index  int
	BookID string
	Err    error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record %d: book %s not found", e.Index, e.BookID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// StoreError wraps a persistence failure for a single record.
type StoreError struct {
	Index int
	Op    string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("record %d: failed to %s: %v", e.Index, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedBatch, fmt.Sprintf(format, args...))
}
