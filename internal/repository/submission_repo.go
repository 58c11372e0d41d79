package repository

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/storage"
)

// LedgerRepository persists submission ledgers.
type LedgerRepository interface {
	Get(ctx context.Context, assignmentID string) (models.SubmissionLedger, error)
	Save(ctx context.Context, ledger models.SubmissionLedger, operation string, extra storage.Metadata) error
	Delete(ctx context.Context, assignmentID string) error
}

type ledgerRepository struct {
	store    RecordStore
	validate *validator.Validate
}

// NewLedgerRepository instantiates a store-backed ledger repository.
func NewLedgerRepository(store RecordStore, validate *validator.Validate) LedgerRepository {
	return &ledgerRepository{store: store, validate: validate}
}

func (r *ledgerRepository) Get(ctx context.Context, assignmentID string) (models.SubmissionLedger, error) {
	var ledger models.SubmissionLedger
	found, err := readRecord(ctx, r.store, r.validate, LedgerKey(assignmentID), &ledger)
	if err != nil {
		return models.SubmissionLedger{}, err
	}
	if !found {
		return models.SubmissionLedger{}, ErrRecordNotFound
	}
	if ledger.Submissions == nil {
		ledger.Submissions = []models.Submission{}
	}
	return ledger, nil
}

func (r *ledgerRepository) Save(ctx context.Context, ledger models.SubmissionLedger, operation string, extra storage.Metadata) error {
	meta := storage.Metadata{"assignmentId": ledger.AssignmentID}
	for k, v := range extra {
		meta[k] = v
	}
	return writeRecord(ctx, r.store, LedgerKey(ledger.AssignmentID), ledger, "submission", operation, meta)
}

func (r *ledgerRepository) Delete(ctx context.Context, assignmentID string) error {
	_, err := r.store.Delete(ctx, LedgerKey(assignmentID), storage.Metadata{
		"type":         "submission",
		"operation":    "delete",
		"assignmentId": assignmentID,
	})
	return err
}
