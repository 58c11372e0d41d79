package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/ratelimit"
	"github.com/noah-isme/assignment-portal-api/internal/session"
	"github.com/noah-isme/assignment-portal-api/internal/storage"
)

func setupSystemService(t *testing.T) (*fixture, SystemService, *session.Registry, *ratelimit.Limiter) {
	t.Helper()

	f := newFixture(t)
	registry := session.NewRegistry(f.store, session.Options{}, zerolog.Nop())
	limiter := ratelimit.New(ratelimit.Config{Name: "admin", MaxRequests: 2, Window: time.Minute}, zerolog.Nop())

	service := NewSystemService(registry, []LimiterStatter{limiter}, f.store, f.index, f.roster, f.assignments, f.store, "test", zerolog.Nop())
	if concrete, ok := service.(*systemService); ok {
		concrete.now = func() time.Time { return fixedNow }
	}
	return f, service, registry, limiter
}

func TestSystemServiceBootstrapIsIdempotent(t *testing.T) {
	f, service, _, _ := setupSystemService(t)
	ctx := context.Background()

	require.NoError(t, service.Bootstrap(ctx))
	exists, err := f.store.Exists("index/assignments")
	require.NoError(t, err)
	require.True(t, exists)
	roster, err := f.roster.Get(ctx)
	require.NoError(t, err)
	require.Empty(t, roster.Classes)

	stats, err := f.store.StatsSince(time.Hour)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Total)

	f.seedAssignment(t, models.Assignment{ID: "A1", Title: "T"})
	require.NoError(t, service.Bootstrap(ctx))
	index, err := f.index.Get(ctx)
	require.NoError(t, err)
	require.Len(t, index.Assignments, 1)
}

func TestSystemServiceHealth(t *testing.T) {
	_, service, _, _ := setupSystemService(t)
	ctx := context.Background()

	health := service.Health(ctx)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "error", health.DataStatus)
	require.Equal(t, "test", health.Version)

	require.NoError(t, service.Bootstrap(ctx))
	require.Equal(t, "ok", service.Health(ctx).DataStatus)
}

func TestSystemServiceStatusAndFailures(t *testing.T) {
	f, service, registry, limiter := setupSystemService(t)
	ctx := context.Background()

	_, _, err := registry.Create(ctx, "agent", "10.0.0.1")
	require.NoError(t, err)
	limiter.Allow("10.0.0.1")

	f.fsys.setBroken(true)
	_, err = f.store.Write(ctx, "index/assignments", models.NewAssignmentIndex(fixedNow), storage.Metadata{"type": "index"})
	require.ErrorIs(t, err, storage.ErrPersistence)
	f.fsys.setBroken(false)

	status, err := service.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", status.Status)
	require.Equal(t, 1, status.Sessions.Active)
	require.Equal(t, 1, status.RateLimit["admin"].ActiveRequests)
	require.Equal(t, 2, status.WriteOperations.Total)
	require.Equal(t, 1, status.WriteOperations.Failed)
	require.Equal(t, 1, status.RecentFailures)

	failed, err := service.FailedOperations(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "24h", failed.Period)
	require.Equal(t, 1, failed.Count)
	require.Equal(t, "index/assignments", failed.Operations[0].Key)
	require.Equal(t, 3, failed.Operations[0].Attempts)

	// Huge windows are clamped instead of overflowing into an empty result.
	failed, err = service.FailedOperations(ctx, 1<<62)
	require.NoError(t, err)
	require.Equal(t, "8760h", failed.Period)
	require.Equal(t, 1, failed.Count)
}

func TestSystemServicePublicStatsAndValidate(t *testing.T) {
	f, service, _, _ := setupSystemService(t)
	ctx := context.Background()
	due := fixedNow.Add(time.Hour)

	f.seedAssignment(t, models.Assignment{ID: "A1", Title: "Open", DueDate: &due})
	f.seedAssignment(t, models.Assignment{ID: "A2", Title: "Closed", Status: models.AssignmentStatusInactive})

	index, err := f.index.Get(ctx)
	require.NoError(t, err)
	index.Assignments[index.Find("A1")].SubmissionCount = 4
	require.NoError(t, f.index.Save(ctx, index, "update"))

	stats, err := service.PublicStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalAssignments)
	require.Equal(t, 1, stats.ActiveAssignments)
	require.Equal(t, 4, stats.TotalSubmissions)

	valid, err := service.ValidateAssignment(ctx, "A1")
	require.NoError(t, err)
	require.True(t, valid.Exists)
	require.Equal(t, "Open", valid.Title)
	require.True(t, valid.DueDate.Equal(due))

	missing, err := service.ValidateAssignment(ctx, "nope")
	require.NoError(t, err)
	require.False(t, missing.Exists)
}
