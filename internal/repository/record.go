package repository

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/assignment-portal-api/internal/storage"
)

// ErrRecordNotFound is returned when a keyed record does not exist.
var ErrRecordNotFound = errors.New("record not found")

// Record keys.
const (
	IndexKey  = "index/assignments"
	RosterKey = "roster/classes"
)

// AssignmentKey addresses an assignment definition.
func AssignmentKey(id string) string {
	return "assignments/" + id
}

// LedgerKey addresses the submission ledger of an assignment.
func LedgerKey(id string) string {
	return "submissions/" + id
}

// Locker serialises read-modify-write sequences on record keys.
type Locker interface {
	Lock(keys ...string) func()
}

// RecordStore is the subset of the durable store used by repositories.
type RecordStore interface {
	Read(ctx context.Context, key string, out any) (bool, error)
	Write(ctx context.Context, key string, record any, meta storage.Metadata) (storage.Outcome, error)
	Delete(ctx context.Context, key string, meta storage.Metadata) (storage.Outcome, error)
	Exists(key string) (bool, error)
}

// readRecord decodes and validates the record under key. Shape mismatches
// surface as *storage.CorruptDataError. Invalid keys read as absent.
func readRecord(ctx context.Context, store RecordStore, validate *validator.Validate, key string, out any) (bool, error) {
	found, err := store.Read(ctx, key, out)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			return false, nil
		}
		return false, err
	}
	if !found {
		return false, nil
	}

	if err := validate.Struct(out); err != nil {
		return false, &storage.CorruptDataError{Key: key, Err: err}
	}
	return true, nil
}

func writeRecord(ctx context.Context, store RecordStore, key string, record any, recordType, operation string, extra storage.Metadata) error {
	meta := storage.Metadata{"type": recordType, "operation": operation}
	for k, v := range extra {
		meta[k] = v
	}
	_, err := store.Write(ctx, key, record, meta)
	return err
}
