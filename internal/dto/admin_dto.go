package dto

import (
	"time"

	"github.com/noah-isme/assignment-portal-api/internal/ratelimit"
	"github.com/noah-isme/assignment-portal-api/internal/session"
	"github.com/noah-isme/assignment-portal-api/internal/storage"
)

// LoginRequest carries the admin password.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns a fresh session.
type LoginResponse struct {
	SessionID string `json:"session_id"`
	ExpiresIn int64  `json:"expires_in"`
}

// LogoutRequest optionally names the session in the body.
type LogoutRequest struct {
	SessionID string `json:"session_id"`
}

// SessionInfoResponse describes the caller's session.
type SessionInfoResponse struct {
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ClassListRequest replaces the whole roster.
type ClassListRequest struct {
	Classes []string `json:"classes" validate:"required,dive,required,max=50"`
}

// ClassCreateRequest adds one class.
type ClassCreateRequest struct {
	ClassName string `json:"class_name" validate:"required,max=50"`
}

// ClassListResponse lists the roster.
type ClassListResponse struct {
	Classes      []string  `json:"classes"`
	TotalClasses int       `json:"total_classes"`
	LastUpdated  time.Time `json:"last_updated"`
}

// SystemStatusResponse aggregates runtime health for administrators.
type SystemStatusResponse struct {
	Status          string                     `json:"status"`
	Timestamp       time.Time                  `json:"timestamp"`
	Sessions        session.Stats              `json:"sessions"`
	RateLimit       map[string]ratelimit.Stats `json:"rate_limit"`
	WriteOperations storage.WriteStats         `json:"write_operations"`
	RecentFailures  int                        `json:"recent_failures"`
	Version         string                     `json:"version"`
}

// FailedOperationsResponse lists failed durable writes in a window.
type FailedOperationsResponse struct {
	Period     string                   `json:"period"`
	Count      int                      `json:"count"`
	Operations []storage.WriteOperation `json:"operations"`
}

// HealthResponse reports liveness and data availability.
type HealthResponse struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version"`
	DataStatus string    `json:"data_status"`
}

// PublicStatsResponse exposes totals from the index.
type PublicStatsResponse struct {
	TotalAssignments  int       `json:"total_assignments"`
	ActiveAssignments int       `json:"active_assignments"`
	TotalSubmissions  int       `json:"total_submissions"`
	LastUpdated       time.Time `json:"last_updated"`
}

// ValidateAssignmentResponse reports whether an assignment id exists.
type ValidateAssignmentResponse struct {
	Exists  bool       `json:"exists"`
	Title   string     `json:"title,omitempty"`
	Status  string     `json:"status,omitempty"`
	DueDate *time.Time `json:"due_date,omitempty"`
}
