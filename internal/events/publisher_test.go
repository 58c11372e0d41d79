package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPublisherSendsToRedisChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	sub := client.Subscribe(ctx, SubjectSubmissionCreated)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewPublisher(Config{Redis: client}, zerolog.Nop())
	event := SubmissionCreated{
		AssignmentID: "a1",
		SubmissionID: "s1",
		StudentID:    "S00001",
		Percentage:   100,
		SubmittedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, publisher.PublishSubmissionCreated(ctx, event))

	receiveCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(receiveCtx)
	require.NoError(t, err)

	var decoded SubmissionCreated
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &decoded))
	require.Equal(t, event, decoded)
}

func TestPublisherWithoutTransportsIsNoop(t *testing.T) {
	publisher := NewPublisher(Config{}, zerolog.Nop())
	require.NoError(t, publisher.PublishSubmissionCreated(context.Background(), SubmissionCreated{AssignmentID: "a1"}))
	require.NoError(t, Nop{}.PublishSubmissionCreated(context.Background(), SubmissionCreated{}))
}
