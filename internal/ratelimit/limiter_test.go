package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	current time.Time
}

func (f *fakeClock) Now() time.Time { return f.current }

func (f *fakeClock) Advance(d time.Duration) { f.current = f.current.Add(d) }

func newTestLimiter(max int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{current: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	limiter := New(Config{Name: "test", MaxRequests: max, Window: window}, zerolog.Nop())
	limiter.now = clock.Now
	return limiter, clock
}

func TestLimiterAllowsExactlyMaxThenDenies(t *testing.T) {
	limiter, clock := newTestLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		decision := limiter.Allow("ip1")
		require.True(t, decision.Allowed, "request %d", i+1)
		require.Equal(t, 5-(i+1), decision.Remaining)
		require.Equal(t, 5, decision.Limit)
		clock.Advance(time.Second)
	}

	denied := limiter.Allow("ip1")
	require.False(t, denied.Allowed)
	require.Zero(t, denied.Remaining)
	// The first request frees its slot one window after it was made.
	require.Equal(t, time.Date(2024, 6, 1, 8, 1, 0, 0, time.UTC), denied.ResetAt)

	clock.Advance(time.Minute)
	require.True(t, limiter.Allow("ip1").Allowed)
}

func TestLimiterSixtyOneCallsInOneWindow(t *testing.T) {
	limiter, clock := newTestLimiter(60, 60*time.Second)

	for i := 1; i <= 60; i++ {
		require.True(t, limiter.Allow("ip1").Allowed, "call %d", i)
		clock.Advance(500 * time.Millisecond)
	}
	require.False(t, limiter.Allow("ip1").Allowed)
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)

	require.True(t, limiter.Allow("a").Allowed)
	require.False(t, limiter.Allow("a").Allowed)
	require.True(t, limiter.Allow("b").Allowed)
}

func TestLimiterInstancesAreIndependent(t *testing.T) {
	admin, _ := newTestLimiter(1, time.Minute)
	student, _ := newTestLimiter(1, time.Minute)

	require.True(t, admin.Allow("ip").Allowed)
	require.False(t, admin.Allow("ip").Allowed)
	require.True(t, student.Allow("ip").Allowed)
}

func TestLimiterDeniedRequestsAreNotRecorded(t *testing.T) {
	limiter, clock := newTestLimiter(2, time.Minute)

	require.True(t, limiter.Allow("ip").Allowed)
	clock.Advance(10 * time.Second)
	require.True(t, limiter.Allow("ip").Allowed)
	for i := 0; i < 5; i++ {
		require.False(t, limiter.Allow("ip").Allowed)
	}

	clock.Advance(50 * time.Second)
	decision := limiter.Allow("ip")
	require.True(t, decision.Allowed)
	require.Zero(t, decision.Remaining)
}

func TestLimiterSweepRemovesIdleKeys(t *testing.T) {
	limiter, clock := newTestLimiter(10, time.Minute)

	limiter.Allow("old")
	clock.Advance(45 * time.Second)
	limiter.Allow("recent")
	clock.Advance(30 * time.Second)

	require.Equal(t, 1, limiter.Sweep())
	stats := limiter.Stats()
	require.Equal(t, 1, stats.TotalKeys)
	require.Equal(t, 1, stats.ActiveRequests)
	require.Equal(t, []KeyUsage{{Key: "recent", Requests: 1}}, stats.TopUsers)
}

func TestLimiterStatsTopUsers(t *testing.T) {
	limiter, _ := newTestLimiter(100, time.Minute)

	for i := 0; i < 12; i++ {
		key := fmt.Sprintf("user-%02d", i)
		for j := 0; j <= i; j++ {
			limiter.Allow(key)
		}
	}

	stats := limiter.Stats()
	require.Equal(t, "test", stats.Name)
	require.Equal(t, 12, stats.TotalKeys)
	require.Equal(t, 78, stats.ActiveRequests)
	require.Len(t, stats.TopUsers, 10)
	require.Equal(t, KeyUsage{Key: "user-11", Requests: 12}, stats.TopUsers[0])
	require.Equal(t, KeyUsage{Key: "user-02", Requests: 3}, stats.TopUsers[9])
}
