package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assignment-portal-api/internal/dto"
	"github.com/noah-isme/assignment-portal-api/internal/storage"
)

func setupRosterService(t *testing.T) (*fixture, RosterService) {
	t.Helper()

	f := newFixture(t)
	service := NewRosterService(f.roster, f.store, f.validate, zerolog.Nop())
	if concrete, ok := service.(*rosterService); ok {
		concrete.now = func() time.Time { return fixedNow }
	}
	return f, service
}

func TestRosterServiceListEmpty(t *testing.T) {
	_, service := setupRosterService(t)

	response, err := service.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, response.Classes)
	require.NotNil(t, response.Classes)
	require.Zero(t, response.TotalClasses)
}

func TestRosterServiceReplaceTrimsAndDeduplicates(t *testing.T) {
	_, service := setupRosterService(t)
	ctx := context.Background()

	response, err := service.Replace(ctx, dto.ClassListRequest{Classes: []string{" 7A ", "7B", "7A"}})
	require.NoError(t, err)
	require.Equal(t, []string{"7A", "7B"}, response.Classes)
	require.Equal(t, 2, response.TotalClasses)
	require.Equal(t, fixedNow, response.LastUpdated)

	listed, err := service.List(ctx)
	require.NoError(t, err)
	require.Equal(t, response.Classes, listed.Classes)

	_, err = service.Replace(ctx, dto.ClassListRequest{Classes: []string{""}})
	require.Error(t, err)
}

func TestRosterServiceAddAndRemove(t *testing.T) {
	_, service := setupRosterService(t)
	ctx := context.Background()

	response, err := service.Add(ctx, dto.ClassCreateRequest{ClassName: "8C"})
	require.NoError(t, err)
	require.Equal(t, []string{"8C"}, response.Classes)

	_, err = service.Add(ctx, dto.ClassCreateRequest{ClassName: " 8C "})
	require.ErrorIs(t, err, ErrClassExists)

	response, err = service.Remove(ctx, "8C")
	require.NoError(t, err)
	require.Empty(t, response.Classes)

	_, err = service.Remove(ctx, "8C")
	require.ErrorIs(t, err, ErrClassNotFound)
}

func TestRosterServiceSurfacesPersistenceFailure(t *testing.T) {
	f, service := setupRosterService(t)

	f.fsys.setBroken(true)
	_, err := service.Add(context.Background(), dto.ClassCreateRequest{ClassName: "9A"})
	require.ErrorIs(t, err, storage.ErrPersistence)
}
