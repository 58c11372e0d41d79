package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/assignment-portal-api/internal/dto"
	"github.com/noah-isme/assignment-portal-api/internal/session"
	"github.com/noah-isme/assignment-portal-api/internal/storage"
)

func setupAuthService(t *testing.T) (*fixture, AuthService, *session.Registry) {
	t.Helper()

	f := newFixture(t)
	registry := session.NewRegistry(f.store, session.Options{Timeout: 30 * time.Minute}, zerolog.Nop())
	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)

	return f, NewAuthService(registry, hash, f.validate, zerolog.Nop()), registry
}

func TestAuthServiceLoginVerifyLogout(t *testing.T) {
	_, service, registry := setupAuthService(t)
	ctx := context.Background()

	login, err := service.Login(ctx, dto.LoginRequest{Password: "s3cret"}, "agent", "10.0.0.1")
	require.NoError(t, err)
	require.Len(t, login.SessionID, 64)
	require.Equal(t, int64(30*60*1000), login.ExpiresIn)

	require.True(t, service.Authenticate(ctx, login.SessionID))
	require.True(t, service.Authenticate(ctx, " "+login.SessionID+" "))

	info, err := service.Verify(ctx, login.SessionID)
	require.NoError(t, err)
	require.Equal(t, info.CreatedAt.Add(30*time.Minute), info.ExpiresAt)

	require.NoError(t, service.Logout(ctx, login.SessionID))
	require.False(t, service.Authenticate(ctx, login.SessionID))
	require.Equal(t, 0, registry.Stats().Total)

	_, err = service.Verify(ctx, login.SessionID)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, service.Logout(ctx, ""))
}

func TestAuthServiceRejectsBadPasswords(t *testing.T) {
	_, service, registry := setupAuthService(t)
	ctx := context.Background()

	_, err := service.Login(ctx, dto.LoginRequest{Password: "wrong"}, "", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(ctx, dto.LoginRequest{}, "", "")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidCredentials)

	require.Equal(t, 0, registry.Stats().Total)
	require.False(t, service.Authenticate(ctx, ""))
}

func TestAuthServiceLoginSurfacesPersistenceFailure(t *testing.T) {
	f, service, registry := setupAuthService(t)

	f.fsys.setBroken(true)
	_, err := service.Login(context.Background(), dto.LoginRequest{Password: "s3cret"}, "", "")
	require.ErrorIs(t, err, storage.ErrPersistence)
	require.Equal(t, 0, registry.Stats().Total)
}
