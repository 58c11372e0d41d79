package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/assignment-portal-api/internal/dto"
	"github.com/noah-isme/assignment-portal-api/internal/events"
	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/observability"
	"github.com/noah-isme/assignment-portal-api/internal/repository"
	"github.com/noah-isme/assignment-portal-api/internal/storage"
)

// CacheInvalidator drops cached derivations of an assignment's ledger.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, assignmentID string)
}

// SubmissionService turns raw answer sets into scored ledger entries.
type SubmissionService interface {
	StudentView(ctx context.Context, assignmentID string) (dto.StudentAssignmentView, error)
	Submit(ctx context.Context, assignmentID string, payload dto.SubmitRequest, address string) (dto.SubmissionResult, error)
	CheckSubmission(ctx context.Context, assignmentID string, query dto.CheckSubmissionQuery) (dto.CheckSubmissionResponse, error)
}

type submissionService struct {
	assignments repository.AssignmentRepository
	ledgers     repository.LedgerRepository
	index       repository.IndexRepository
	locker      repository.Locker
	validator   *validator.Validate
	scorer      *Scorer
	publisher   events.Publisher
	cache       CacheInvalidator
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSubmissionService constructs the submission pipeline. publisher and cache may be nil.
func NewSubmissionService(assignments repository.AssignmentRepository, ledgers repository.LedgerRepository, index repository.IndexRepository, locker repository.Locker, validate *validator.Validate, scorer *Scorer, publisher events.Publisher, cache CacheInvalidator, logger zerolog.Logger) SubmissionService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if scorer == nil {
		scorer = NewScorer()
	}
	return &submissionService{
		assignments: assignments,
		ledgers:     ledgers,
		index:       index,
		locker:      locker,
		validator:   validate,
		scorer:      scorer,
		publisher:   publisher,
		cache:       cache,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/assignment-portal-api/internal/service/submission"),
		now:         time.Now,
	}
}

func (s *submissionService) StudentView(ctx context.Context, assignmentID string) (dto.StudentAssignmentView, error) {
	assignment, _, err := s.loadOpenAssignment(ctx, assignmentID)
	if err != nil {
		return dto.StudentAssignmentView{}, err
	}
	return dto.NewStudentAssignmentView(assignment), nil
}

func (s *submissionService) Submit(ctx context.Context, assignmentID string, payload dto.SubmitRequest, address string) (dto.SubmissionResult, error) {
	ctx, span := s.tracer.Start(ctx, "submissions.submit", trace.WithAttributes(attribute.String("assignment.id", assignmentID)))
	defer span.End()

	// Reading, validating and appending happen under one lock so two
	// concurrent submissions cannot both pass the duplicate check.
	unlock := s.locker.Lock(repository.LedgerKey(assignmentID), repository.IndexKey)
	defer unlock()

	result, err := s.submitLocked(ctx, assignmentID, payload, address)
	if err != nil {
		observability.Submissions().WithLabelValues(submissionOutcome(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_failed")
		return dto.SubmissionResult{}, err
	}

	observability.Submissions().WithLabelValues("accepted").Inc()
	return result, nil
}

func (s *submissionService) submitLocked(ctx context.Context, assignmentID string, payload dto.SubmitRequest, address string) (dto.SubmissionResult, error) {
	assignment, now, err := s.loadOpenAssignment(ctx, assignmentID)
	if err != nil {
		return dto.SubmissionResult{}, err
	}
	isLate := assignment.IsPastDue(now)

	identity := payload.StudentInfo.Normalize()
	if err := s.validator.Struct(identity); err != nil {
		return dto.SubmissionResult{}, fmt.Errorf("%w: %s", ErrInvalidIdentity, describeValidation(err))
	}

	if len(payload.Answers) == 0 {
		return dto.SubmissionResult{}, ErrNoAnswers
	}

	ledger, err := s.ledgers.Get(ctx, assignmentID)
	if err != nil {
		if !errors.Is(err, repository.ErrRecordNotFound) {
			return dto.SubmissionResult{}, err
		}
		ledger = models.NewLedger(assignmentID, now)
	}

	if _, exists := ledger.FindByStudentID(identity.StudentID); exists {
		s.logger.Info().Str("assignment_id", assignmentID).Str("student_id", identity.StudentID).Str("address", address).Msg("duplicate submission rejected")
		return dto.SubmissionResult{}, ErrDuplicateSubmission
	}
	if _, exists := ledger.FindByNameAndClass(identity.Name, identity.ClassName); exists {
		s.logger.Info().Str("assignment_id", assignmentID).Str("class_name", identity.ClassName).Str("address", address).Msg("duplicate submission rejected")
		return dto.SubmissionResult{}, ErrDuplicateSubmission
	}

	card := s.scorer.Score(assignment.Questions, payload.Answers)
	submission := models.Submission{
		ID:              uuid.NewString(),
		StudentInfo:     identity.Model(),
		Answers:         card.Answers,
		QuestionResults: card.Results,
		Score:           card.Score,
		MaxScore:        card.MaxScore,
		Percentage:      card.Percentage,
		SubmittedAt:     now,
		IsLate:          isLate,
		Address:         address,
	}

	ledger.Append(submission, now)
	if err := s.ledgers.Save(ctx, ledger, "student_submit", storage.Metadata{"studentId": identity.StudentID}); err != nil {
		s.logger.Error().Err(err).Str("assignment_id", assignmentID).Str("address", address).Msg("failed to persist submission ledger")
		return dto.SubmissionResult{}, fmt.Errorf("save submission: %w", err)
	}

	if err := s.updateSubmissionCount(ctx, assignmentID, len(ledger.Submissions), now); err != nil {
		s.logger.Error().Err(err).Str("assignment_id", assignmentID).Msg("failed to persist submission count")
		return dto.SubmissionResult{}, fmt.Errorf("update assignment index: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, assignmentID)
	}
	s.publish(ctx, assignmentID, submission)

	s.logger.Info().
		Str("assignment_id", assignmentID).
		Str("student_id", identity.StudentID).
		Int("percentage", submission.Percentage).
		Bool("late", isLate).
		Msg("submission accepted")

	return dto.SubmissionResult{
		SubmissionID: submission.ID,
		Score:        submission.Score,
		MaxScore:     submission.MaxScore,
		Percentage:   submission.Percentage,
		IsLate:       isLate,
	}, nil
}

func (s *submissionService) CheckSubmission(ctx context.Context, assignmentID string, query dto.CheckSubmissionQuery) (dto.CheckSubmissionResponse, error) {
	studentID := strings.TrimSpace(query.StudentID)
	name := strings.TrimSpace(query.Name)
	className := strings.TrimSpace(query.ClassName)

	if studentID == "" && (name == "" || className == "") {
		return dto.CheckSubmissionResponse{}, fmt.Errorf("%w: student_id or name and class_name are required", ErrInvalidIdentity)
	}

	ledger, err := s.ledgers.Get(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return dto.CheckSubmissionResponse{HasSubmitted: false}, nil
		}
		return dto.CheckSubmissionResponse{}, err
	}

	var (
		existing models.Submission
		found    bool
	)
	if studentID != "" {
		existing, found = ledger.FindByStudentID(studentID)
	} else {
		existing, found = ledger.FindByNameAndClass(name, className)
	}

	if !found {
		return dto.CheckSubmissionResponse{HasSubmitted: false}, nil
	}
	return dto.CheckSubmissionResponse{
		HasSubmitted:   true,
		SubmissionInfo: dto.NewSubmissionInfo(existing),
	}, nil
}

// loadOpenAssignment applies the not found, closed and past due checks in order.
func (s *submissionService) loadOpenAssignment(ctx context.Context, assignmentID string) (models.Assignment, time.Time, error) {
	assignment, err := s.assignments.Get(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return models.Assignment{}, time.Time{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, time.Time{}, err
	}

	if !assignment.IsActive() {
		return models.Assignment{}, time.Time{}, ErrAssignmentClosed
	}

	now := s.now().UTC()
	if assignment.IsPastDue(now) && !assignment.Settings.AllowLateSubmission {
		return models.Assignment{}, time.Time{}, ErrAssignmentPastDue
	}

	return assignment, now, nil
}

func (s *submissionService) updateSubmissionCount(ctx context.Context, assignmentID string, count int, now time.Time) error {
	index, err := s.index.Get(ctx)
	if err != nil {
		return err
	}

	pos := index.Find(assignmentID)
	if pos < 0 {
		s.logger.Warn().Str("assignment_id", assignmentID).Msg("assignment missing from index, submission count not cached")
		return nil
	}

	index.Assignments[pos].SubmissionCount = count
	index.Metadata.LastUpdated = now
	return s.index.Save(ctx, index, "submission_count_update")
}

func (s *submissionService) publish(ctx context.Context, assignmentID string, submission models.Submission) {
	event := events.SubmissionCreated{
		AssignmentID: assignmentID,
		SubmissionID: submission.ID,
		StudentID:    submission.StudentInfo.StudentID,
		ClassName:    submission.StudentInfo.ClassName,
		Score:        submission.Score,
		MaxScore:     submission.MaxScore,
		Percentage:   submission.Percentage,
		IsLate:       submission.IsLate,
		SubmittedAt:  submission.SubmittedAt,
	}
	if err := s.publisher.PublishSubmissionCreated(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("assignment_id", assignmentID).Msg("failed to publish submission event")
	}
}

func submissionOutcome(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateSubmission):
		return "duplicate"
	case errors.Is(err, storage.ErrPersistence):
		return "persistence_failed"
	case errors.Is(err, storage.ErrCorruptData):
		return "corrupt_data"
	default:
		return "rejected"
	}
}
