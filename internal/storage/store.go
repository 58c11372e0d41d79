package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/assignment-portal-api/internal/observability"
)

const (
	// DefaultRetryAttempts is the attempt ceiling for a single durable write.
	DefaultRetryAttempts = 3
	// DefaultRetryDelay is the fixed pause between two attempts.
	DefaultRetryDelay = time.Second
	// JournalFile is the audit journal name inside the data root.
	JournalFile = "write-operations.log"

	recordExt = ".json"
)

var keySegment = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Options tunes the retry policy of a Store.
type Options struct {
	RetryAttempts int
	RetryDelay    time.Duration
	JournalPath   string
}

// Outcome describes how a durable write or delete finished.
type Outcome struct {
	OperationID string `json:"operation_id"`
	Key         string `json:"key"`
	Success     bool   `json:"success"`
	Attempts    int    `json:"attempts"`
	Error       string `json:"error,omitempty"`
}

// Store persists JSON records addressed by logical keys and journals every write.
type Store struct {
	fs       afero.Fs
	root     string
	attempts int
	delay    time.Duration
	journal  *Journal
	locks    *keyedMutex
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// New constructs a Store rooted at dir on the provided filesystem.
func New(fsys afero.Fs, root string, opts Options, logger zerolog.Logger) *Store {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = DefaultRetryAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.JournalPath == "" {
		opts.JournalPath = filepath.Join(root, JournalFile)
	}

	return &Store{
		fs:       fsys,
		root:     root,
		attempts: opts.RetryAttempts,
		delay:    opts.RetryDelay,
		journal:  NewJournal(fsys, opts.JournalPath),
		locks:    newKeyedMutex(),
		logger:   logger.With().Str("component", "durable_store").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/assignment-portal-api/internal/storage"),
		now:      time.Now,
	}
}

// Journal exposes the underlying audit journal.
func (s *Store) Journal() *Journal {
	return s.journal
}

// Lock serialises read-modify-write sequences on the given keys.
func (s *Store) Lock(keys ...string) func() {
	return s.locks.Lock(keys...)
}

// Path resolves a logical key to its file location.
func (s *Store) Path(key string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(key), "/")
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	segments := strings.Split(trimmed, "/")
	for _, segment := range segments {
		if segment == "." || segment == ".." || !keySegment.MatchString(segment) {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}

	return filepath.Join(s.root, filepath.Join(segments...)) + recordExt, nil
}

// Read decodes the record stored under key into out. A missing key is not an
// error: found is false and out is left untouched.
func (s *Store) Read(ctx context.Context, key string, out any) (bool, error) {
	_, span := s.tracer.Start(ctx, "store.read", trace.WithAttributes(attribute.String("store.key", key)))
	defer span.End()

	path, err := s.Path(key)
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "read_failed")
		return false, fmt.Errorf("read %q: %w", key, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		corrupt := &CorruptDataError{Key: key, Err: err}
		span.RecordError(corrupt)
		span.SetStatus(codes.Error, "corrupt_record")
		s.logger.Error().Err(err).Str("key", key).Msg("stored record is corrupt")
		return false, corrupt
	}

	return true, nil
}

// Exists reports whether a record is stored under key.
func (s *Store) Exists(key string) (bool, error) {
	path, err := s.Path(key)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, path)
}

// Write persists record under key, retrying failed attempts with a fixed delay.
// Every attempt and the terminal outcome land in the journal. When all attempts
// fail the returned error is a *PersistenceError.
func (s *Store) Write(ctx context.Context, key string, record any, meta Metadata) (Outcome, error) {
	path, err := s.Path(key)
	if err != nil {
		return Outcome{Key: key}, err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return Outcome{Key: key}, fmt.Errorf("encode %q: %w", key, err)
	}

	return s.execute(ctx, "store.write", key, len(data), meta, func() error {
		return s.persist(path, data)
	})
}

// Delete removes the record under key with the same retry and journal rules as
// Write. Deleting a missing record succeeds.
func (s *Store) Delete(ctx context.Context, key string, meta Metadata) (Outcome, error) {
	path, err := s.Path(key)
	if err != nil {
		return Outcome{Key: key}, err
	}

	return s.execute(ctx, "store.delete", key, 0, meta, func() error {
		if err := s.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
}

// AuditSince yields journal entries recorded inside the window, newest first.
func (s *Store) AuditSince(window time.Duration) iter.Seq2[WriteOperation, error] {
	return s.journal.Since(window)
}

// FailedSince lists failed write outcomes inside the window, newest first.
func (s *Store) FailedSince(window time.Duration) ([]WriteOperation, error) {
	return s.journal.Failed(window)
}

// StatsSince summarises write outcomes inside the window.
func (s *Store) StatsSince(window time.Duration) (WriteStats, error) {
	return s.journal.Stats(window)
}

func (s *Store) execute(ctx context.Context, spanName, key string, size int, meta Metadata, op func() error) (Outcome, error) {
	// A caller giving up must not abort a write that is already retrying.
	ctx = context.WithoutCancel(ctx)
	ctx, span := s.tracer.Start(ctx, spanName, trace.WithAttributes(attribute.String("store.key", key)))
	defer span.End()

	entry := WriteOperation{
		ID:        uuid.NewString(),
		Key:       key,
		Size:      size,
		StartedAt: s.now().UTC(),
		Metadata:  meta,
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		opErr := op()

		record := entry
		record.Kind = KindAttempt
		record.Attempts = attempt
		record.Timestamp = s.now().UTC()
		record.Status = StatusSuccess
		if opErr != nil {
			record.Status = StatusFailed
			record.Error = opErr.Error()
		}
		s.appendJournal(record)
		observability.StoreWriteAttempts().WithLabelValues(string(record.Status)).Inc()

		return struct{}{}, opErr
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(s.delay)),
		backoff.WithMaxTries(uint(s.attempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			s.logger.Warn().Err(err).Str("key", key).Int("attempt", attempt).Dur("retry_in", wait).Msg("write attempt failed, retrying")
		}),
	)

	outcome := Outcome{OperationID: entry.ID, Key: key, Success: err == nil, Attempts: attempt}

	final := entry
	final.Kind = KindOutcome
	final.Attempts = attempt
	final.Timestamp = s.now().UTC()
	final.Status = StatusSuccess
	if err != nil {
		final.Status = StatusFailed
		final.Error = err.Error()
		outcome.Error = err.Error()
	}
	s.appendJournal(final)
	observability.StoreWriteOutcomes().WithLabelValues(string(final.Status)).Inc()
	span.SetAttributes(attribute.Int("store.attempts", attempt))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retries_exhausted")
		s.logger.Error().Err(err).Str("key", key).Str("operation_id", entry.ID).Int("attempts", attempt).Msg("write operation failed")
		return outcome, &PersistenceError{Key: key, OperationID: entry.ID, Attempts: attempt, Err: err}
	}

	s.logger.Debug().Str("key", key).Int("attempts", attempt).Msg("write operation succeeded")
	return outcome, nil
}

func (s *Store) appendJournal(entry WriteOperation) {
	if err := s.journal.Append(entry); err != nil {
		s.logger.Error().Err(err).Str("operation_id", entry.ID).Msg("failed to append to operation journal")
	}
}

func (s *Store) persist(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create record dir: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("replace record: %w", err)
	}

	return nil
}
