package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/assignment-portal-api/internal/dto"
	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/ratelimit"
	"github.com/noah-isme/assignment-portal-api/internal/repository"
	"github.com/noah-isme/assignment-portal-api/internal/session"
	"github.com/noah-isme/assignment-portal-api/internal/storage"
)

const (
	defaultReportWindow = 24 * time.Hour
	// MaxReportHours bounds failed operation lookups to one year.
	MaxReportHours = 24 * 365
)

// SessionStatter reports session table statistics.
type SessionStatter interface {
	Stats() session.Stats
}

// LimiterStatter reports admission statistics for one policy.
type LimiterStatter interface {
	Name() string
	Stats() ratelimit.Stats
}

// WriteAuditor exposes the durable write journal.
type WriteAuditor interface {
	Exists(key string) (bool, error)
	StatsSince(window time.Duration) (storage.WriteStats, error)
	FailedSince(window time.Duration) ([]storage.WriteOperation, error)
}

// SystemService reports on runtime and data health.
type SystemService interface {
	Bootstrap(ctx context.Context) error
	Status(ctx context.Context) (dto.SystemStatusResponse, error)
	FailedOperations(ctx context.Context, hours int) (dto.FailedOperationsResponse, error)
	Health(ctx context.Context) dto.HealthResponse
	PublicStats(ctx context.Context) (dto.PublicStatsResponse, error)
	ValidateAssignment(ctx context.Context, id string) (dto.ValidateAssignmentResponse, error)
}

type systemService struct {
	sessions    SessionStatter
	limiters    []LimiterStatter
	auditor     WriteAuditor
	index       repository.IndexRepository
	roster      repository.RosterRepository
	assignments repository.AssignmentRepository
	locker      repository.Locker
	version     string
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSystemService constructs a SystemService.
func NewSystemService(sessions SessionStatter, limiters []LimiterStatter, auditor WriteAuditor, index repository.IndexRepository, roster repository.RosterRepository, assignments repository.AssignmentRepository, locker repository.Locker, version string, logger zerolog.Logger) SystemService {
	return &systemService{
		sessions:    sessions,
		limiters:    limiters,
		auditor:     auditor,
		index:       index,
		roster:      roster,
		assignments: assignments,
		locker:      locker,
		version:     version,
		logger:      logger.With().Str("component", "system_service").Logger(),
		now:         time.Now,
	}
}

// Bootstrap writes an empty index and roster when none exist yet.
func (s *systemService) Bootstrap(ctx context.Context) error {
	unlock := s.locker.Lock(repository.IndexKey, repository.RosterKey)
	defer unlock()

	now := s.now().UTC()

	exists, err := s.auditor.Exists(repository.IndexKey)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.index.Save(ctx, models.NewAssignmentIndex(now), "init"); err != nil {
			return fmt.Errorf("initialise assignment index: %w", err)
		}
		s.logger.Info().Msg("initialised empty assignment index")
	}

	exists, err = s.auditor.Exists(repository.RosterKey)
	if err != nil {
		return err
	}
	if !exists {
		roster := models.ClassRoster{}
		roster.Refresh(now)
		if err := s.roster.Save(ctx, roster, "init"); err != nil {
			return fmt.Errorf("initialise class roster: %w", err)
		}
		s.logger.Info().Msg("initialised empty class roster")
	}

	return nil
}

func (s *systemService) Status(_ context.Context) (dto.SystemStatusResponse, error) {
	writeStats, err := s.auditor.StatsSince(defaultReportWindow)
	if err != nil {
		return dto.SystemStatusResponse{}, err
	}
	failed, err := s.auditor.FailedSince(defaultReportWindow)
	if err != nil {
		return dto.SystemStatusResponse{}, err
	}

	limits := make(map[string]ratelimit.Stats, len(s.limiters))
	for _, limiter := range s.limiters {
		limits[limiter.Name()] = limiter.Stats()
	}

	return dto.SystemStatusResponse{
		Status:          "ok",
		Timestamp:       s.now().UTC(),
		Sessions:        s.sessions.Stats(),
		RateLimit:       limits,
		WriteOperations: writeStats,
		RecentFailures:  len(failed),
		Version:         s.version,
	}, nil
}

func (s *systemService) FailedOperations(_ context.Context, hours int) (dto.FailedOperationsResponse, error) {
	if hours <= 0 {
		hours = int(defaultReportWindow / time.Hour)
	}
	hours = min(hours, MaxReportHours)

	failed, err := s.auditor.FailedSince(time.Duration(hours) * time.Hour)
	if err != nil {
		return dto.FailedOperationsResponse{}, err
	}
	if failed == nil {
		failed = []storage.WriteOperation{}
	}

	return dto.FailedOperationsResponse{
		Period:     fmt.Sprintf("%dh", hours),
		Count:      len(failed),
		Operations: failed,
	}, nil
}

func (s *systemService) Health(ctx context.Context) dto.HealthResponse {
	dataStatus := "ok"
	if exists, err := s.auditor.Exists(repository.IndexKey); err != nil || !exists {
		dataStatus = "error"
	} else if _, err := s.index.Get(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("assignment index unreadable")
		dataStatus = "error"
	}

	return dto.HealthResponse{
		Status:     "ok",
		Timestamp:  s.now().UTC(),
		Version:    s.version,
		DataStatus: dataStatus,
	}
}

func (s *systemService) PublicStats(ctx context.Context) (dto.PublicStatsResponse, error) {
	index, err := s.index.Get(ctx)
	if err != nil {
		return dto.PublicStatsResponse{}, err
	}

	response := dto.PublicStatsResponse{
		TotalAssignments: len(index.Assignments),
		LastUpdated:      index.Metadata.LastUpdated,
	}
	for _, summary := range index.Assignments {
		if summary.Status == models.AssignmentStatusActive {
			response.ActiveAssignments++
		}
		response.TotalSubmissions += summary.SubmissionCount
	}
	return response, nil
}

func (s *systemService) ValidateAssignment(ctx context.Context, id string) (dto.ValidateAssignmentResponse, error) {
	assignment, err := s.assignments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return dto.ValidateAssignmentResponse{Exists: false}, nil
		}
		return dto.ValidateAssignmentResponse{}, err
	}

	return dto.ValidateAssignmentResponse{
		Exists:  true,
		Title:   assignment.Title,
		Status:  assignment.Status,
		DueDate: assignment.DueDate,
	}, nil
}
