package repository

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/storage"
)

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	Get(ctx context.Context, id string) (models.Assignment, error)
	Exists(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, assignment models.Assignment, operation string) error
	Delete(ctx context.Context, id string) error
}

type assignmentRepository struct {
	store    RecordStore
	validate *validator.Validate
}

// NewAssignmentRepository instantiates a store-backed repository.
func NewAssignmentRepository(store RecordStore, validate *validator.Validate) AssignmentRepository {
	return &assignmentRepository{store: store, validate: validate}
}

func (r *assignmentRepository) Get(ctx context.Context, id string) (models.Assignment, error) {
	var assignment models.Assignment
	found, err := readRecord(ctx, r.store, r.validate, AssignmentKey(id), &assignment)
	if err != nil {
		return models.Assignment{}, err
	}
	if !found {
		return models.Assignment{}, ErrRecordNotFound
	}
	return assignment, nil
}

func (r *assignmentRepository) Exists(_ context.Context, id string) (bool, error) {
	exists, err := r.store.Exists(AssignmentKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			return false, nil
		}
		return false, err
	}
	return exists, nil
}

func (r *assignmentRepository) Save(ctx context.Context, assignment models.Assignment, operation string) error {
	return writeRecord(ctx, r.store, AssignmentKey(assignment.ID), assignment, "assignment", operation, storage.Metadata{
		"assignmentId": assignment.ID,
	})
}

func (r *assignmentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.store.Delete(ctx, AssignmentKey(id), storage.Metadata{
		"type":         "assignment",
		"operation":    "delete",
		"assignmentId": id,
	})
	return err
}
