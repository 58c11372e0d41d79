package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Status is the result recorded for a journaled write.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Kind separates per-attempt entries from the terminal outcome of an operation.
type Kind string

const (
	KindAttempt Kind = "attempt"
	KindOutcome Kind = "outcome"
)

// Metadata carries caller supplied tags such as the record type and operation.
type Metadata map[string]string

// WriteOperation is one immutable line of the audit journal.
type WriteOperation struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Kind      Kind      `json:"kind"`
	Size      int       `json:"size"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	Attempts  int       `json:"attempts"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// WriteStats summarises terminal outcomes inside a time window.
type WriteStats struct {
	Total       int `json:"total"`
	Successful  int `json:"successful"`
	Failed      int `json:"failed"`
	FailureRate int `json:"failure_rate"`
}

// Journal is the append-only operation log, one JSON document per line.
type Journal struct {
	fs   afero.Fs
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewJournal binds a journal to a file on the given filesystem.
func NewJournal(fsys afero.Fs, path string) *Journal {
	return &Journal{fs: fsys, path: path, now: time.Now}
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

// Append writes a single entry. Entries are never rewritten.
func (j *Journal) Append(entry WriteOperation) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.fs.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}

	f, err := j.fs.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append journal: %w", err)
	}
	return f.Close()
}

// Since lazily scans the journal each time it is ranged over and yields the
// entries recorded inside the window, newest first. Unparseable lines are skipped.
func (j *Journal) Since(window time.Duration) iter.Seq2[WriteOperation, error] {
	return func(yield func(WriteOperation, error) bool) {
		entries, err := j.scan(j.now().Add(-window))
		if err != nil {
			yield(WriteOperation{}, err)
			return
		}
		for _, entry := range entries {
			if !yield(entry, nil) {
				return
			}
		}
	}
}

func (j *Journal) scan(cutoff time.Time) ([]WriteOperation, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := j.fs.Open(j.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	var entries []WriteOperation
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entry WriteOperation
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if entry.Timestamp.After(cutoff) {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	slices.SortStableFunc(entries, func(a, b WriteOperation) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return entries, nil
}

// Failed returns the failed outcomes recorded inside the window, newest first.
func (j *Journal) Failed(window time.Duration) ([]WriteOperation, error) {
	var failed []WriteOperation
	for entry, err := range j.Since(window) {
		if err != nil {
			return nil, err
		}
		if entry.Kind == KindOutcome && entry.Status == StatusFailed {
			failed = append(failed, entry)
		}
	}
	return failed, nil
}

// Stats counts terminal outcomes inside the window.
func (j *Journal) Stats(window time.Duration) (WriteStats, error) {
	var stats WriteStats
	for entry, err := range j.Since(window) {
		if err != nil {
			return WriteStats{}, err
		}
		if entry.Kind != KindOutcome {
			continue
		}
		stats.Total++
		switch entry.Status {
		case StatusSuccess:
			stats.Successful++
		case StatusFailed:
			stats.Failed++
		}
	}
	if stats.Total > 0 {
		stats.FailureRate = int(math.Round(float64(stats.Failed) / float64(stats.Total) * 100))
	}
	return stats, nil
}
