package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assignment-portal-api/internal/dto"
	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/repository"
)

// RosterService manages the list of known classes.
type RosterService interface {
	List(ctx context.Context) (dto.ClassListResponse, error)
	Replace(ctx context.Context, payload dto.ClassListRequest) (dto.ClassListResponse, error)
	Add(ctx context.Context, payload dto.ClassCreateRequest) (dto.ClassListResponse, error)
	Remove(ctx context.Context, className string) (dto.ClassListResponse, error)
}

type rosterService struct {
	repo      repository.RosterRepository
	locker    repository.Locker
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRosterService constructs a RosterService.
func NewRosterService(repo repository.RosterRepository, locker repository.Locker, validate *validator.Validate, logger zerolog.Logger) RosterService {
	return &rosterService{
		repo:      repo,
		locker:    locker,
		validator: validate,
		logger:    logger.With().Str("component", "roster_service").Logger(),
		now:       time.Now,
	}
}

func (s *rosterService) List(ctx context.Context) (dto.ClassListResponse, error) {
	roster, err := s.load(ctx)
	if err != nil {
		return dto.ClassListResponse{}, err
	}
	return newClassListResponse(roster), nil
}

func (s *rosterService) Replace(ctx context.Context, payload dto.ClassListRequest) (dto.ClassListResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ClassListResponse{}, err
	}

	classes := make([]string, 0, len(payload.Classes))
	for _, name := range payload.Classes {
		name = strings.TrimSpace(name)
		if name == "" || slices.Contains(classes, name) {
			continue
		}
		classes = append(classes, name)
	}

	unlock := s.locker.Lock(repository.RosterKey)
	defer unlock()

	roster := models.ClassRoster{Classes: classes}
	return s.save(ctx, roster, "replace")
}

func (s *rosterService) Add(ctx context.Context, payload dto.ClassCreateRequest) (dto.ClassListResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ClassListResponse{}, err
	}
	name := strings.TrimSpace(payload.ClassName)

	unlock := s.locker.Lock(repository.RosterKey)
	defer unlock()

	roster, err := s.load(ctx)
	if err != nil {
		return dto.ClassListResponse{}, err
	}
	if slices.Contains(roster.Classes, name) {
		return dto.ClassListResponse{}, ErrClassExists
	}

	roster.Classes = append(roster.Classes, name)
	return s.save(ctx, roster, "add")
}

func (s *rosterService) Remove(ctx context.Context, className string) (dto.ClassListResponse, error) {
	name := strings.TrimSpace(className)

	unlock := s.locker.Lock(repository.RosterKey)
	defer unlock()

	roster, err := s.load(ctx)
	if err != nil {
		return dto.ClassListResponse{}, err
	}

	pos := slices.Index(roster.Classes, name)
	if pos < 0 {
		return dto.ClassListResponse{}, ErrClassNotFound
	}

	roster.Classes = slices.Delete(roster.Classes, pos, pos+1)
	return s.save(ctx, roster, "remove")
}

func (s *rosterService) load(ctx context.Context) (models.ClassRoster, error) {
	roster, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return models.ClassRoster{Classes: []string{}}, nil
		}
		return models.ClassRoster{}, err
	}
	return roster, nil
}

func (s *rosterService) save(ctx context.Context, roster models.ClassRoster, operation string) (dto.ClassListResponse, error) {
	roster.Refresh(s.now().UTC())
	if err := s.repo.Save(ctx, roster, operation); err != nil {
		return dto.ClassListResponse{}, fmt.Errorf("save class roster: %w", err)
	}

	s.logger.Info().Str("operation", operation).Int("classes", len(roster.Classes)).Msg("class roster updated")
	return newClassListResponse(roster), nil
}

func newClassListResponse(roster models.ClassRoster) dto.ClassListResponse {
	classes := roster.Classes
	if classes == nil {
		classes = []string{}
	}
	return dto.ClassListResponse{
		Classes:      classes,
		TotalClasses: len(classes),
		LastUpdated:  roster.Metadata.LastUpdated,
	}
}
