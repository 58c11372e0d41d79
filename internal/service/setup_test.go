package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/repository"
	"github.com/noah-isme/assignment-portal-api/internal/storage"
)

var fixedNow = time.Date(2024, time.March, 4, 8, 30, 0, 0, time.UTC)

// switchableFs fails every rename while broken is set, or only renames onto
// paths containing target when one is given.
type switchableFs struct {
	afero.Fs
	mu     sync.Mutex
	broken bool
	target string
}

func (f *switchableFs) setBroken(broken bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broken = broken
	f.target = ""
}

func (f *switchableFs) breakPath(fragment string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broken = true
	f.target = fragment
}

func (f *switchableFs) Rename(oldname, newname string) error {
	f.mu.Lock()
	broken, target := f.broken, f.target
	f.mu.Unlock()
	if broken && (target == "" || strings.Contains(filepath.ToSlash(newname), target)) {
		return errors.New("simulated disk failure")
	}
	return f.Fs.Rename(oldname, newname)
}

type fixture struct {
	fsys        *switchableFs
	store       *storage.Store
	validate    *validator.Validate
	assignments repository.AssignmentRepository
	ledgers     repository.LedgerRepository
	index       repository.IndexRepository
	roster      repository.RosterRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fsys := &switchableFs{Fs: afero.NewMemMapFs()}
	store := storage.New(fsys, "/data", storage.Options{RetryAttempts: 3, RetryDelay: time.Millisecond}, zerolog.Nop())
	validate := NewValidator()

	return &fixture{
		fsys:        fsys,
		store:       store,
		validate:    validate,
		assignments: repository.NewAssignmentRepository(store, validate),
		ledgers:     repository.NewLedgerRepository(store, validate),
		index:       repository.NewIndexRepository(store, validate),
		roster:      repository.NewRosterRepository(store, validate),
	}
}

// seedAssignment stores the assignment, an empty ledger and its index entry.
func (f *fixture) seedAssignment(t *testing.T, assignment models.Assignment) {
	t.Helper()
	ctx := context.Background()

	if assignment.Status == "" {
		assignment.Status = models.AssignmentStatusActive
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = fixedNow.Add(-24 * time.Hour)
		assignment.UpdatedAt = assignment.CreatedAt
	}

	require.NoError(t, f.assignments.Save(ctx, assignment, "create"))
	require.NoError(t, f.ledgers.Save(ctx, models.NewLedger(assignment.ID, assignment.CreatedAt), "create", nil))

	index, err := f.index.Get(ctx)
	require.NoError(t, err)
	index.Upsert(models.SummaryOf(assignment, 0), assignment.CreatedAt)
	require.NoError(t, f.index.Save(ctx, index, "update"))
}

func singleChoice(id string, correct int, points float64) models.Question {
	raw, _ := json.Marshal(correct)
	return models.Question{
		ID:            id,
		Type:          models.QuestionSingleChoice,
		Question:      "Pick one",
		Options:       []string{"x", "y"},
		CorrectAnswer: raw,
		Points:        points,
	}
}

func multipleChoice(id string, correct []int, points float64) models.Question {
	return models.Question{
		ID:             id,
		Type:           models.QuestionMultipleChoice,
		Question:       "Pick all that apply",
		Options:        []string{"a", "b", "c", "d"},
		CorrectAnswers: correct,
		Points:         points,
	}
}

func rawAnswers(t *testing.T, answers map[string]any) map[string]json.RawMessage {
	t.Helper()
	out := make(map[string]json.RawMessage, len(answers))
	for id, value := range answers {
		raw, err := json.Marshal(value)
		require.NoError(t, err)
		out[id] = raw
	}
	return out
}

type recordingCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (c *recordingCache) Invalidate(_ context.Context, assignmentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, assignmentID)
}
