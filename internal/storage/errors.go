package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptData indicates a stored record could not be decoded into its schema.
	ErrCorruptData = errors.New("corrupt record data")
	// ErrPersistence indicates a durable write exhausted its retry budget.
	ErrPersistence = errors.New("persistence failed")
	// ErrInvalidKey indicates a logical key cannot be mapped to a storage location.
	ErrInvalidKey = errors.New("invalid record key")
)

// CorruptDataError reports a record whose bytes do not match the expected format.
type CorruptDataError struct {
	Key string
	Err error
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("record %q is corrupt: %v", e.Key, e.Err)
}

// Unwrap exposes both the sentinel and the decoding cause.
func (e *CorruptDataError) Unwrap() []error {
	return []error{ErrCorruptData, e.Err}
}

// PersistenceError reports a write whose attempts were all exhausted.
type PersistenceError struct {
	Key         string
	OperationID string
	Attempts    int
	Err         error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("write %s to %q failed after %d attempts: %v", e.OperationID, e.Key, e.Attempts, e.Err)
}

// Unwrap exposes both the sentinel and the last I/O error.
func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}
