package repository

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/assignment-portal-api/internal/models"
)

// IndexRepository persists the assignment index.
type IndexRepository interface {
	// Get returns the index, or an empty one when none was saved yet.
	Get(ctx context.Context) (models.AssignmentIndex, error)
	Save(ctx context.Context, index models.AssignmentIndex, operation string) error
}

type indexRepository struct {
	store    RecordStore
	validate *validator.Validate
	now      func() time.Time
}

// NewIndexRepository instantiates a store-backed index repository.
func NewIndexRepository(store RecordStore, validate *validator.Validate) IndexRepository {
	return &indexRepository{store: store, validate: validate, now: time.Now}
}

func (r *indexRepository) Get(ctx context.Context) (models.AssignmentIndex, error) {
	var index models.AssignmentIndex
	found, err := readRecord(ctx, r.store, r.validate, IndexKey, &index)
	if err != nil {
		return models.AssignmentIndex{}, err
	}
	if !found {
		return models.NewAssignmentIndex(r.now().UTC()), nil
	}
	if index.Assignments == nil {
		index.Assignments = []models.AssignmentSummary{}
	}
	return index, nil
}

func (r *indexRepository) Save(ctx context.Context, index models.AssignmentIndex, operation string) error {
	return writeRecord(ctx, r.store, IndexKey, index, "index", operation, nil)
}
