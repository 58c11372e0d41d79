package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SubjectSubmissionCreated is the channel and subject submission events go to.
const SubjectSubmissionCreated = "submission.created"

// SubmissionCreated is emitted once a submission has been stored durably.
type SubmissionCreated struct {
	AssignmentID string    `json:"assignment_id"`
	SubmissionID string    `json:"submission_id"`
	StudentID    string    `json:"student_id"`
	ClassName    string    `json:"class_name"`
	Score        float64   `json:"score"`
	MaxScore     float64   `json:"max_score"`
	Percentage   int       `json:"percentage"`
	IsLate       bool      `json:"is_late"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Publisher fans submission events out to subscribers.
type Publisher interface {
	PublishSubmissionCreated(ctx context.Context, event SubmissionCreated) error
}

// Config selects the transports a publisher writes to. Nil clients are skipped.
type Config struct {
	Redis        *redis.Client
	RedisChannel string
	NATS         *nats.Conn
	NATSSubject  string
}

type publisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
}

// NewPublisher builds a publisher over the configured transports.
func NewPublisher(cfg Config, logger zerolog.Logger) Publisher {
	if cfg.RedisChannel == "" {
		cfg.RedisChannel = SubjectSubmissionCreated
	}
	if cfg.NATSSubject == "" {
		cfg.NATSSubject = SubjectSubmissionCreated
	}
	return &publisher{
		redis:        cfg.Redis,
		redisChannel: cfg.RedisChannel,
		nats:         cfg.NATS,
		natsSubject:  cfg.NATSSubject,
		logger:       logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *publisher) PublishSubmissionCreated(ctx context.Context, event SubmissionCreated) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if p.redis != nil {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if p.nats != nil {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			return err
		}
	}

	p.logger.Debug().Str("assignment_id", event.AssignmentID).Str("submission_id", event.SubmissionID).Msg("submission event published")
	return nil
}

// Nop discards every event.
type Nop struct{}

// PublishSubmissionCreated implements Publisher.
func (Nop) PublishSubmissionCreated(context.Context, SubmissionCreated) error {
	return nil
}
