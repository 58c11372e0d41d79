package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assignment-portal-api/internal/dto"
	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/repository"
)

// AdminAssignmentService manages assignment definitions for administrators.
type AdminAssignmentService interface {
	List(ctx context.Context) (models.AssignmentIndex, error)
	Get(ctx context.Context, id string) (models.Assignment, error)
	Create(ctx context.Context, payload dto.AssignmentCreateRequest) (models.Assignment, error)
	Update(ctx context.Context, id string, payload dto.AssignmentUpdateRequest) (models.Assignment, error)
	Delete(ctx context.Context, id string) error
	Batch(ctx context.Context, payload dto.BatchRequest) ([]dto.BatchResult, error)
	Export(ctx context.Context, id string) (dto.ExportResponse, error)
}

type adminAssignmentService struct {
	assignments repository.AssignmentRepository
	ledgers     repository.LedgerRepository
	index       repository.IndexRepository
	locker      repository.Locker
	validator   *validator.Validate
	policy      *bluemonday.Policy
	cache       CacheInvalidator
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAdminAssignmentService constructs the admin assignment service. cache may be nil.
func NewAdminAssignmentService(assignments repository.AssignmentRepository, ledgers repository.LedgerRepository, index repository.IndexRepository, locker repository.Locker, validate *validator.Validate, cache CacheInvalidator, logger zerolog.Logger) AdminAssignmentService {
	return &adminAssignmentService{
		assignments: assignments,
		ledgers:     ledgers,
		index:       index,
		locker:      locker,
		validator:   validate,
		policy:      bluemonday.StrictPolicy(),
		cache:       cache,
		logger:      logger.With().Str("component", "admin_assignment_service").Logger(),
		now:         time.Now,
	}
}

func (s *adminAssignmentService) List(ctx context.Context) (models.AssignmentIndex, error) {
	return s.index.Get(ctx)
}

func (s *adminAssignmentService) Get(ctx context.Context, id string) (models.Assignment, error) {
	assignment, err := s.assignments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (s *adminAssignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest) (models.Assignment, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Assignment{}, err
	}

	questions, err := buildQuestions(payload.Questions)
	if err != nil {
		return models.Assignment{}, err
	}

	now := s.now().UTC()
	assignment := models.Assignment{
		ID:          uuid.NewString(),
		Title:       s.clean(payload.Title),
		Description: s.clean(payload.Description),
		DueDate:     utcPtr(payload.DueDate),
		Questions:   questions,
		Status:      models.AssignmentStatusActive,
		Settings:    payload.Settings.Apply(models.DefaultAssignmentSettings()),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if assignment.Title == "" {
		return models.Assignment{}, fmt.Errorf("%w: title must not be empty", ErrInvalidAssignment)
	}

	unlock := s.locker.Lock(repository.AssignmentKey(assignment.ID), repository.LedgerKey(assignment.ID), repository.IndexKey)
	defer unlock()

	if err := s.assignments.Save(ctx, assignment, "create"); err != nil {
		return models.Assignment{}, fmt.Errorf("save assignment: %w", err)
	}
	if err := s.ledgers.Save(ctx, models.NewLedger(assignment.ID, now), "create", nil); err != nil {
		return models.Assignment{}, fmt.Errorf("create submission ledger: %w", err)
	}

	index, err := s.index.Get(ctx)
	if err != nil {
		return models.Assignment{}, err
	}
	index.Upsert(models.SummaryOf(assignment, 0), now)
	if err := s.index.Save(ctx, index, "update"); err != nil {
		return models.Assignment{}, fmt.Errorf("update assignment index: %w", err)
	}

	s.logger.Info().Str("assignment_id", assignment.ID).Int("questions", len(questions)).Msg("assignment created")
	return assignment, nil
}

func (s *adminAssignmentService) Update(ctx context.Context, id string, payload dto.AssignmentUpdateRequest) (models.Assignment, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Assignment{}, err
	}

	unlock := s.locker.Lock(repository.AssignmentKey(id), repository.IndexKey)
	defer unlock()

	assignment, err := s.Get(ctx, id)
	if err != nil {
		return models.Assignment{}, err
	}

	if payload.Title != nil {
		if title := s.clean(*payload.Title); title != "" {
			assignment.Title = title
		}
	}
	if payload.Description != nil {
		assignment.Description = s.clean(*payload.Description)
	}
	if payload.ClearDueDate {
		assignment.DueDate = nil
	} else if payload.DueDate != nil {
		assignment.DueDate = utcPtr(payload.DueDate)
	}
	if len(payload.Questions) > 0 {
		questions, err := buildQuestions(payload.Questions)
		if err != nil {
			return models.Assignment{}, err
		}
		assignment.Questions = questions
	}
	if payload.Status != nil {
		assignment.Status = *payload.Status
	}
	assignment.Settings = payload.Settings.Apply(assignment.Settings)
	assignment.UpdatedAt = s.now().UTC()

	if err := s.assignments.Save(ctx, assignment, "update"); err != nil {
		return models.Assignment{}, fmt.Errorf("save assignment: %w", err)
	}
	if err := s.syncIndexEntry(ctx, assignment); err != nil {
		return models.Assignment{}, err
	}
	s.invalidate(ctx, id)

	s.logger.Info().Str("assignment_id", id).Msg("assignment updated")
	return assignment, nil
}

func (s *adminAssignmentService) Delete(ctx context.Context, id string) error {
	unlock := s.locker.Lock(repository.AssignmentKey(id), repository.LedgerKey(id), repository.IndexKey)
	defer unlock()

	exists, err := s.assignments.Exists(ctx, id)
	if err != nil {
		return err
	}
	index, err := s.index.Get(ctx)
	if err != nil {
		return err
	}
	if !exists && index.Find(id) < 0 {
		return ErrAssignmentNotFound
	}

	if err := s.assignments.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if err := s.ledgers.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete submission ledger: %w", err)
	}
	if index.Remove(id, s.now().UTC()) {
		if err := s.index.Save(ctx, index, "delete"); err != nil {
			return fmt.Errorf("update assignment index: %w", err)
		}
	}
	s.invalidate(ctx, id)

	s.logger.Info().Str("assignment_id", id).Msg("assignment deleted")
	return nil
}

func (s *adminAssignmentService) Batch(ctx context.Context, payload dto.BatchRequest) ([]dto.BatchResult, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	status := models.AssignmentStatusActive
	if payload.Operation == "deactivate" {
		status = models.AssignmentStatusInactive
	}

	results := make([]dto.BatchResult, 0, len(payload.AssignmentIDs))
	for _, id := range payload.AssignmentIDs {
		if err := s.setStatus(ctx, id, status); err != nil {
			results = append(results, dto.BatchResult{ID: id, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, dto.BatchResult{ID: id, Success: true})
	}

	s.logger.Info().Str("operation", payload.Operation).Int("assignments", len(results)).Msg("batch operation applied")
	return results, nil
}

func (s *adminAssignmentService) Export(ctx context.Context, id string) (dto.ExportResponse, error) {
	assignment, err := s.Get(ctx, id)
	if err != nil {
		return dto.ExportResponse{}, err
	}

	ledger, err := s.ledgers.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return dto.ExportResponse{}, ErrAssignmentNotFound
		}
		return dto.ExportResponse{}, err
	}

	return dto.ExportResponse{
		Assignment:  assignment,
		Submissions: ledger,
		ExportedAt:  s.now().UTC(),
		ExportedBy:  "admin",
	}, nil
}

func (s *adminAssignmentService) setStatus(ctx context.Context, id, status string) error {
	unlock := s.locker.Lock(repository.AssignmentKey(id), repository.IndexKey)
	defer unlock()

	assignment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	assignment.Status = status
	assignment.UpdatedAt = s.now().UTC()
	if err := s.assignments.Save(ctx, assignment, "batch_"+status); err != nil {
		return err
	}
	return s.syncIndexEntry(ctx, assignment)
}

func (s *adminAssignmentService) syncIndexEntry(ctx context.Context, assignment models.Assignment) error {
	index, err := s.index.Get(ctx)
	if err != nil {
		return err
	}

	count := 0
	if pos := index.Find(assignment.ID); pos >= 0 {
		count = index.Assignments[pos].SubmissionCount
	}
	index.Upsert(models.SummaryOf(assignment, count), assignment.UpdatedAt)
	if err := s.index.Save(ctx, index, "update"); err != nil {
		return fmt.Errorf("update assignment index: %w", err)
	}
	return nil
}

func (s *adminAssignmentService) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
}

func (s *adminAssignmentService) clean(value string) string {
	return strings.TrimSpace(s.policy.Sanitize(value))
}

// buildQuestions converts payloads into questions, assigning ids where missing.
func buildQuestions(payloads []dto.QuestionPayload) ([]models.Question, error) {
	questions := make([]models.Question, 0, len(payloads))
	seen := make(map[string]struct{}, len(payloads))

	for i, payload := range payloads {
		id := strings.TrimSpace(payload.ID)
		if id == "" {
			id = fmt.Sprintf("q%d", i+1)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate question id %q", ErrInvalidQuestion, id)
		}
		seen[id] = struct{}{}

		question := models.Question{
			ID:             id,
			Type:           payload.Type,
			Question:       strings.TrimSpace(payload.Question),
			Options:        payload.Options,
			CorrectAnswer:  payload.CorrectAnswer,
			CorrectAnswers: payload.CorrectAnswers,
			Required:       payload.Required,
			Points:         payload.Points,
		}
		if question.Points <= 0 {
			question.Points = 1
		}
		if err := checkQuestion(question); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, question)
	}

	return questions, nil
}

func checkQuestion(q models.Question) error {
	if q.IsChoice() && len(q.Options) < 2 {
		return fmt.Errorf("%w: at least two options required", ErrInvalidQuestion)
	}

	switch q.Type {
	case models.QuestionSingleChoice:
		idx, ok := q.CorrectIndex()
		if !ok || idx < 0 || idx >= len(q.Options) {
			return fmt.Errorf("%w: correct_answer must be an option index", ErrInvalidQuestion)
		}
	case models.QuestionMultipleChoice:
		if len(q.CorrectAnswers) == 0 {
			return fmt.Errorf("%w: correct_answers must not be empty", ErrInvalidQuestion)
		}
		for _, idx := range q.CorrectAnswers {
			if idx < 0 || idx >= len(q.Options) {
				return fmt.Errorf("%w: correct_answers must be option indexes", ErrInvalidQuestion)
			}
		}
	case models.QuestionShortAnswer:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidQuestion, q.Type)
	}
	return nil
}

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
