package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assignment-portal-api/internal/dto"
	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/repository"
)

// StatisticsService derives per-assignment breakdowns from ledgers.
type StatisticsService interface {
	Statistics(ctx context.Context, assignmentID string) (dto.AssignmentStatisticsResponse, error)
	Invalidate(ctx context.Context, assignmentID string)
}

type statisticsService struct {
	assignments repository.AssignmentRepository
	ledgers     repository.LedgerRepository
	locker      repository.Locker
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

// NewStatisticsService constructs a statistics service. cache may be nil.
func NewStatisticsService(assignments repository.AssignmentRepository, ledgers repository.LedgerRepository, locker repository.Locker, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StatisticsService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &statisticsService{
		assignments: assignments,
		ledgers:     ledgers,
		locker:      locker,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "statistics_service").Logger(),
	}
}

func statisticsCacheKey(assignmentID string) string {
	return fmt.Sprintf("assignment:statistics:%s", assignmentID)
}

func (s *statisticsService) Statistics(ctx context.Context, assignmentID string) (dto.AssignmentStatisticsResponse, error) {
	cacheKey := statisticsCacheKey(assignmentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.AssignmentStatisticsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("assignment_id", assignmentID).Msg("statistics cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read statistics cache")
		}
	}

	// Writers invalidate the cache while holding these keys, so a breakdown
	// computed from an older ledger or question set is never stored after them.
	unlock := s.locker.Lock(repository.AssignmentKey(assignmentID), repository.LedgerKey(assignmentID))
	defer unlock()

	ledger, err := s.ledgers.Get(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return dto.AssignmentStatisticsResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentStatisticsResponse{}, err
	}

	var questions []models.Question
	if assignment, err := s.assignments.Get(ctx, assignmentID); err == nil {
		questions = assignment.Questions
	} else if !errors.Is(err, repository.ErrRecordNotFound) {
		return dto.AssignmentStatisticsResponse{}, err
	}

	response := dto.AssignmentStatisticsResponse{
		SubmissionLedger:   ledger,
		DetailedStatistics: BuildDetailedStatistics(questions, ledger),
	}

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store statistics cache")
			}
		}
	}

	return response, nil
}

func (s *statisticsService) Invalidate(ctx context.Context, assignmentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statisticsCacheKey(assignmentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("assignment_id", assignmentID).Msg("failed to invalidate statistics cache")
	}
}

// BuildDetailedStatistics groups a ledger by class and by question.
func BuildDetailedStatistics(questions []models.Question, ledger models.SubmissionLedger) dto.DetailedStatistics {
	stats := dto.DetailedStatistics{
		TotalSubmissions:   len(ledger.Submissions),
		SubmissionsByClass: make(map[string]int),
		QuestionStatistics: make([]dto.QuestionStatistic, 0, len(questions)),
	}

	perQuestion := make(map[string]*dto.QuestionStatistic, len(questions))
	for _, question := range questions {
		stats.QuestionStatistics = append(stats.QuestionStatistics, dto.QuestionStatistic{
			QuestionID: question.ID,
			Type:       question.Type,
		})
	}
	for i := range stats.QuestionStatistics {
		perQuestion[stats.QuestionStatistics[i].QuestionID] = &stats.QuestionStatistics[i]
	}

	for _, submission := range ledger.Submissions {
		stats.SubmissionsByClass[submission.StudentInfo.ClassName]++
		if submission.IsLate {
			stats.LateSubmissions++
		}
		for _, result := range submission.QuestionResults {
			entry, ok := perQuestion[result.QuestionID]
			if !ok {
				continue
			}
			if len(result.StudentAnswer) > 0 {
				entry.Answered++
			}
			if result.IsCorrect {
				entry.Correct++
			}
			if result.NeedsReview && len(result.StudentAnswer) > 0 {
				entry.NeedsReview++
			}
		}
	}

	for i := range stats.QuestionStatistics {
		entry := &stats.QuestionStatistics[i]
		if stats.TotalSubmissions > 0 {
			entry.CorrectRate = float64(Percentage(float64(entry.Correct), float64(stats.TotalSubmissions)))
		}
	}

	return stats
}
