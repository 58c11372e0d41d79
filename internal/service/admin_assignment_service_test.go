package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assignment-portal-api/internal/dto"
	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/storage"
)

func setupAdminAssignmentService(t *testing.T) (*fixture, AdminAssignmentService, *recordingCache) {
	t.Helper()

	f := newFixture(t)
	cache := &recordingCache{}
	service := NewAdminAssignmentService(f.assignments, f.ledgers, f.index, f.store, f.validate, cache, zerolog.Nop())
	if concrete, ok := service.(*adminAssignmentService); ok {
		concrete.now = func() time.Time { return fixedNow }
	}
	return f, service, cache
}

func sampleCreateRequest() dto.AssignmentCreateRequest {
	due := fixedNow.Add(48 * time.Hour)
	return dto.AssignmentCreateRequest{
		Title:       "  Fractions <script>alert(1)</script> ",
		Description: " Week 3 ",
		DueDate:     &due,
		Questions: []dto.QuestionPayload{
			{Type: models.QuestionSingleChoice, Question: "1/2 + 1/2?", Options: []string{"1", "2"}, CorrectAnswer: json.RawMessage(`0`), Points: 2},
			{Type: models.QuestionMultipleChoice, Question: "Even?", Options: []string{"2", "3", "4"}, CorrectAnswers: []int{0, 2}},
			{Type: models.QuestionShortAnswer, Question: "Why?"},
		},
	}
}

func TestAdminAssignmentServiceCreate(t *testing.T) {
	f, service, _ := setupAdminAssignmentService(t)
	ctx := context.Background()

	assignment, err := service.Create(ctx, sampleCreateRequest())
	require.NoError(t, err)
	require.NotEmpty(t, assignment.ID)
	require.Equal(t, "Fractions", assignment.Title)
	require.Equal(t, "Week 3", assignment.Description)
	require.Equal(t, models.AssignmentStatusActive, assignment.Status)
	require.True(t, assignment.Settings.AllowLateSubmission)
	require.Equal(t, []string{"q1", "q2", "q3"}, []string{assignment.Questions[0].ID, assignment.Questions[1].ID, assignment.Questions[2].ID})
	require.Equal(t, 1.0, assignment.Questions[1].Points)

	stored, err := f.assignments.Get(ctx, assignment.ID)
	require.NoError(t, err)
	require.Equal(t, assignment.Title, stored.Title)

	ledger, err := f.ledgers.Get(ctx, assignment.ID)
	require.NoError(t, err)
	require.Empty(t, ledger.Submissions)

	index, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, index.Assignments, 1)
	require.Equal(t, assignment.ID, index.Assignments[0].ID)
	require.Equal(t, 1, index.Metadata.TotalAssignments)
}

func TestAdminAssignmentServiceCreateRejectsBadQuestions(t *testing.T) {
	_, service, _ := setupAdminAssignmentService(t)
	ctx := context.Background()

	outOfRange := sampleCreateRequest()
	outOfRange.Questions[0].CorrectAnswer = json.RawMessage(`5`)
	_, err := service.Create(ctx, outOfRange)
	require.ErrorIs(t, err, ErrInvalidQuestion)

	noOptions := sampleCreateRequest()
	noOptions.Questions[1].Options = []string{"only"}
	_, err = service.Create(ctx, noOptions)
	require.ErrorIs(t, err, ErrInvalidQuestion)

	duplicateIDs := sampleCreateRequest()
	duplicateIDs.Questions[0].ID = "q"
	duplicateIDs.Questions[1].ID = "q"
	_, err = service.Create(ctx, duplicateIDs)
	require.ErrorIs(t, err, ErrInvalidQuestion)

	markupOnly := sampleCreateRequest()
	markupOnly.Title = "<script>x</script>"
	_, err = service.Create(ctx, markupOnly)
	require.ErrorIs(t, err, ErrInvalidAssignment)

	noQuestions := sampleCreateRequest()
	noQuestions.Questions = nil
	_, err = service.Create(ctx, noQuestions)
	require.Error(t, err)
}

func TestAdminAssignmentServiceUpdate(t *testing.T) {
	f, service, cache := setupAdminAssignmentService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, sampleCreateRequest())
	require.NoError(t, err)

	title := "Fractions II"
	inactive := models.AssignmentStatusInactive
	allowLate := false
	updated, err := service.Update(ctx, created.ID, dto.AssignmentUpdateRequest{
		Title:        &title,
		ClearDueDate: true,
		Status:       &inactive,
		Settings:     &dto.AssignmentSettingsPayload{AllowLateSubmission: &allowLate},
	})
	require.NoError(t, err)
	require.Equal(t, "Fractions II", updated.Title)
	require.Nil(t, updated.DueDate)
	require.False(t, updated.IsActive())
	require.False(t, updated.Settings.AllowLateSubmission)
	require.Len(t, updated.Questions, 3)

	index, err := f.index.Get(ctx)
	require.NoError(t, err)
	entry := index.Assignments[index.Find(created.ID)]
	require.Equal(t, "Fractions II", entry.Title)
	require.Equal(t, models.AssignmentStatusInactive, entry.Status)
	require.Contains(t, cache.invalidated, created.ID)

	_, err = service.Update(ctx, "missing", dto.AssignmentUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestAdminAssignmentServiceDelete(t *testing.T) {
	f, service, _ := setupAdminAssignmentService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, sampleCreateRequest())
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, created.ID))

	_, err = service.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
	exists, err := f.store.Exists("submissions/" + created.ID)
	require.NoError(t, err)
	require.False(t, exists)

	index, err := f.index.Get(ctx)
	require.NoError(t, err)
	require.Empty(t, index.Assignments)

	require.ErrorIs(t, service.Delete(ctx, created.ID), ErrAssignmentNotFound)
}

func TestAdminAssignmentServiceBatch(t *testing.T) {
	f, service, _ := setupAdminAssignmentService(t)
	ctx := context.Background()

	first, err := service.Create(ctx, sampleCreateRequest())
	require.NoError(t, err)
	second, err := service.Create(ctx, sampleCreateRequest())
	require.NoError(t, err)

	results, err := service.Batch(ctx, dto.BatchRequest{Operation: "deactivate", AssignmentIDs: []string{first.ID, "missing", second.ID}})
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.True(t, results[0].Success)
	require.False(t, results[1].Success)
	require.NotEmpty(t, results[1].Error)
	require.True(t, results[2].Success)

	for _, id := range []string{first.ID, second.ID} {
		stored, err := f.assignments.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, models.AssignmentStatusInactive, stored.Status)
	}
	index, err := f.index.Get(ctx)
	require.NoError(t, err)
	for _, entry := range index.Assignments {
		require.Equal(t, models.AssignmentStatusInactive, entry.Status)
	}

	_, err = service.Batch(ctx, dto.BatchRequest{Operation: "archive", AssignmentIDs: []string{first.ID}})
	require.Error(t, err)
}

func TestAdminAssignmentServiceExport(t *testing.T) {
	_, service, _ := setupAdminAssignmentService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, sampleCreateRequest())
	require.NoError(t, err)

	export, err := service.Export(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, export.Assignment.ID)
	require.Equal(t, created.ID, export.Submissions.AssignmentID)
	require.Equal(t, fixedNow, export.ExportedAt)

	_, err = service.Export(ctx, "missing")
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestAdminAssignmentServiceCreateSurfacesPersistenceFailure(t *testing.T) {
	f, service, _ := setupAdminAssignmentService(t)

	f.fsys.setBroken(true)
	_, err := service.Create(context.Background(), sampleCreateRequest())
	require.ErrorIs(t, err, storage.ErrPersistence)
}
