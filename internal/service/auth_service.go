package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/assignment-portal-api/internal/dto"
	"github.com/noah-isme/assignment-portal-api/internal/session"
)

// SessionStore is the session registry surface used for admin auth.
type SessionStore interface {
	Create(ctx context.Context, userAgent, address string) (string, session.Session, error)
	Verify(ctx context.Context, id string) bool
	Get(id string) (session.Session, bool)
	Delete(ctx context.Context, id string) (bool, error)
	Timeout() time.Duration
}

// AuthService authenticates administrators and manages their sessions.
type AuthService interface {
	Login(ctx context.Context, payload dto.LoginRequest, userAgent, address string) (dto.LoginResponse, error)
	Logout(ctx context.Context, sessionID string) error
	Verify(ctx context.Context, sessionID string) (dto.SessionInfoResponse, error)
	Authenticate(ctx context.Context, sessionID string) bool
}

type authService struct {
	sessions     SessionStore
	passwordHash []byte
	validator    *validator.Validate
	logger       zerolog.Logger
}

// HashPassword derives the bcrypt hash stored for the admin password.
func HashPassword(password string, cost int) ([]byte, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

// NewAuthService constructs an AuthService around a bcrypt password hash.
func NewAuthService(sessions SessionStore, passwordHash []byte, validate *validator.Validate, logger zerolog.Logger) AuthService {
	return &authService{
		sessions:     sessions,
		passwordHash: passwordHash,
		validator:    validate,
		logger:       logger.With().Str("component", "auth_service").Logger(),
	}
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest, userAgent, address string) (dto.LoginResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(payload.Password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Error().Err(err).Msg("admin password hash is unusable")
		}
		s.logger.Warn().Str("address", address).Msg("admin login rejected")
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	id, _, err := s.sessions.Create(ctx, userAgent, address)
	if err != nil {
		s.logger.Error().Err(err).Str("address", address).Msg("failed to create admin session")
		return dto.LoginResponse{}, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info().Str("address", address).Msg("admin login succeeded")
	return dto.LoginResponse{
		SessionID: id,
		ExpiresIn: s.sessions.Timeout().Milliseconds(),
	}, nil
}

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}

	if _, err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *authService) Verify(ctx context.Context, sessionID string) (dto.SessionInfoResponse, error) {
	if !s.Authenticate(ctx, sessionID) {
		return dto.SessionInfoResponse{}, ErrUnauthorized
	}

	current, ok := s.sessions.Get(strings.TrimSpace(sessionID))
	if !ok {
		return dto.SessionInfoResponse{}, ErrUnauthorized
	}

	return dto.SessionInfoResponse{
		CreatedAt:  current.CreatedAt,
		LastAccess: current.LastAccess,
		ExpiresAt:  current.ExpiresAt(s.sessions.Timeout()),
	}, nil
}

func (s *authService) Authenticate(ctx context.Context, sessionID string) bool {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return false
	}
	return s.sessions.Verify(ctx, sessionID)
}
