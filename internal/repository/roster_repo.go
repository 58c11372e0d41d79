package repository

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/assignment-portal-api/internal/models"
)

// RosterRepository persists the class roster.
type RosterRepository interface {
	Get(ctx context.Context) (models.ClassRoster, error)
	Save(ctx context.Context, roster models.ClassRoster, operation string) error
}

type rosterRepository struct {
	store    RecordStore
	validate *validator.Validate
}

// NewRosterRepository instantiates a store-backed roster repository.
func NewRosterRepository(store RecordStore, validate *validator.Validate) RosterRepository {
	return &rosterRepository{store: store, validate: validate}
}

func (r *rosterRepository) Get(ctx context.Context) (models.ClassRoster, error) {
	var roster models.ClassRoster
	found, err := readRecord(ctx, r.store, r.validate, RosterKey, &roster)
	if err != nil {
		return models.ClassRoster{}, err
	}
	if !found {
		return models.ClassRoster{}, ErrRecordNotFound
	}
	if roster.Classes == nil {
		roster.Classes = []string{}
	}
	return roster, nil
}

func (r *rosterRepository) Save(ctx context.Context, roster models.ClassRoster, operation string) error {
	return writeRecord(ctx, r.store, RosterKey, roster, "classes", operation, nil)
}
