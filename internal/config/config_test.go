package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORTAL_ADMIN_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":3000", cfg.HTTPAddress())
	require.Equal(t, 3, cfg.WriteRetries)
	require.Equal(t, time.Second, cfg.WriteRetryDelay)
	require.Equal(t, time.Hour, cfg.SessionTimeout)
	require.Equal(t, 100, cfg.SessionMaxCount)
	require.Equal(t, 0.1, cfg.SessionSampleRate)
	require.Equal(t, RateLimit{MaxRequests: 100, Window: time.Minute}, cfg.AdminLimit)
	require.Equal(t, RateLimit{MaxRequests: 30, Window: time.Minute}, cfg.StudentLimit)
	require.Equal(t, RateLimit{MaxRequests: 60, Window: time.Minute}, cfg.PublicLimit)
	require.Equal(t, "submission.created", cfg.EventSubject)
	require.Equal(t, "*", cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORTAL_ADMIN_PASSWORD_HASH", "$2a$10$abc")
	t.Setenv("PORTAL_APP_PORT", ":9090")
	t.Setenv("PORTAL_APP_BASE_URL", "https://portal.test/")
	t.Setenv("PORTAL_RATELIMIT_STUDENT_MAX", "5")
	t.Setenv("PORTAL_SESSION_TIMEOUT", "30m")
	t.Setenv("PORTAL_CORS_ORIGINS", "https://portal.test, https://admin.portal.test")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, "https://portal.test", cfg.BaseURL)
	require.Equal(t, 5, cfg.StudentLimit.MaxRequests)
	require.Equal(t, 30*time.Minute, cfg.SessionTimeout)
	require.Equal(t, "https://portal.test, https://admin.portal.test", cfg.CORSOrigins)
}

func TestLoadRequiresAdminSecret(t *testing.T) {
	t.Setenv("PORTAL_ADMIN_PASSWORD", "")
	t.Setenv("PORTAL_ADMIN_PASSWORD_HASH", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("PORTAL_ADMIN_PASSWORD", "secret")
	t.Setenv("PORTAL_WRITE_RETRY_DELAY", "soon")

	_, err := Load()
	require.Error(t, err)
}
