package session

import (
	"cmp"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	mathrand "math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assignment-portal-api/internal/observability"
	"github.com/noah-isme/assignment-portal-api/internal/storage"
	"github.com/noah-isme/assignment-portal-api/internal/worker"
)

const (
	// DefaultTimeout is the absolute lifetime of a session measured from creation.
	DefaultTimeout = time.Hour
	// DefaultMaxSessions caps the live table.
	DefaultMaxSessions = 100
	// DefaultEvictBatch is how many least recently used sessions make room at capacity.
	DefaultEvictBatch = 10
	// DefaultSweepInterval is how often expired sessions are purged.
	DefaultSweepInterval = 5 * time.Minute
	// DefaultPersistSampleRate is the chance a verification persists the table.
	DefaultPersistSampleRate = 0.1

	idBytes = 32
)

// Session is an authenticated admin session.
type Session struct {
	ID         string    `json:"id" validate:"required,len=64,hexadecimal"`
	CreatedAt  time.Time `json:"created_at" validate:"required"`
	LastAccess time.Time `json:"last_access" validate:"required"`
	UserAgent  string    `json:"user_agent"`
	Address    string    `json:"address"`
}

// ExpiresAt returns the moment the session stops verifying.
func (s Session) ExpiresAt(timeout time.Duration) time.Time {
	return s.CreatedAt.Add(timeout)
}

// Stats summarises the session table.
type Stats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Expired int `json:"expired"`
}

// Options tunes a registry.
type Options struct {
	Name              string
	Timeout           time.Duration
	MaxSessions       int
	EvictBatch        int
	SweepInterval     time.Duration
	PersistSampleRate float64
}

type table struct {
	Sessions []Session `json:"sessions" validate:"dive"`
	SavedAt  time.Time `json:"saved_at"`
}

// Registry owns a bounded in-memory session table snapshotted to the store.
type Registry struct {
	store    *storage.Store
	key      string
	opts     Options
	validate *validator.Validate

	mu       sync.Mutex
	sessions map[string]Session

	// persistMu orders snapshots so the last write carries the latest table.
	persistMu sync.Mutex

	sweeper *worker.Periodic
	logger  zerolog.Logger
	now     func() time.Time
	sample  func() float64
	newID   func() (string, error)
}

// NewRegistry builds an empty registry. Call Load to restore a saved table.
func NewRegistry(store *storage.Store, opts Options, logger zerolog.Logger) *Registry {
	if opts.Name == "" {
		opts.Name = "admin"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.EvictBatch <= 0 {
		opts.EvictBatch = DefaultEvictBatch
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.PersistSampleRate <= 0 || opts.PersistSampleRate > 1 {
		opts.PersistSampleRate = DefaultPersistSampleRate
	}

	r := &Registry{
		store:    store,
		key:      "sessions/" + opts.Name,
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		sessions: make(map[string]Session),
		logger:   logger.With().Str("component", "session_registry").Str("registry", opts.Name).Logger(),
		now:      time.Now,
		sample:   mathrand.Float64,
		newID:    generateID,
	}
	r.sweeper = worker.NewPeriodic("session_sweep:"+opts.Name, opts.SweepInterval, func(ctx context.Context) {
		r.PurgeExpired(ctx)
	}, logger)

	return r
}

// Timeout returns the configured session lifetime.
func (r *Registry) Timeout() time.Duration {
	return r.opts.Timeout
}

// Load restores the persisted table. A missing or corrupt table starts empty.
func (r *Registry) Load(ctx context.Context) error {
	var saved table
	found, err := r.store.Read(ctx, r.key, &saved)
	if err == nil && found {
		if verr := r.validate.Struct(saved); verr != nil {
			err = &storage.CorruptDataError{Key: r.key, Err: verr}
		}
	}

	if err != nil {
		if errors.Is(err, storage.ErrCorruptData) {
			r.logger.Error().Err(err).Msg("session table unreadable, starting with empty table")
			r.replace(nil)
			return nil
		}
		return fmt.Errorf("load sessions: %w", err)
	}

	r.replace(saved.Sessions)
	r.logger.Info().Int("sessions", len(saved.Sessions)).Bool("found", found).Msg("session table loaded")
	return nil
}

// Create registers a new session and persists the table. When persistence
// fails the session is discarded and the error wraps storage.ErrPersistence.
func (r *Registry) Create(ctx context.Context, userAgent, address string) (string, Session, error) {
	id, err := r.newID()
	if err != nil {
		return "", Session{}, fmt.Errorf("generate session id: %w", err)
	}

	now := r.now().UTC()
	session := Session{
		ID:         id,
		CreatedAt:  now,
		LastAccess: now,
		UserAgent:  userAgent,
		Address:    address,
	}

	r.mu.Lock()
	purged := r.purgeLocked(now)
	evicted := 0
	if len(r.sessions) >= r.opts.MaxSessions {
		evicted = r.evictLocked(r.opts.EvictBatch)
	}
	r.sessions[id] = session
	r.reportSizeLocked()
	r.mu.Unlock()

	if purged > 0 || evicted > 0 {
		r.logger.Info().Int("expired", purged).Int("evicted", evicted).Msg("made room for new session")
	}

	if err := r.persist(ctx, "create"); err != nil {
		r.mu.Lock()
		delete(r.sessions, id)
		r.reportSizeLocked()
		r.mu.Unlock()
		return "", Session{}, fmt.Errorf("persist session: %w", err)
	}

	r.logger.Info().Str("address", address).Msg("session created")
	return id, session, nil
}

// Verify reports whether id names a live session and refreshes its last access.
func (r *Registry) Verify(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}

	now := r.now().UTC()

	r.mu.Lock()
	session, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return false
	}

	if r.expired(session, now) {
		delete(r.sessions, id)
		r.reportSizeLocked()
		r.mu.Unlock()

		r.logger.Info().Msg("session expired")
		if err := r.persist(ctx, "expire"); err != nil {
			r.logger.Warn().Err(err).Msg("failed to persist expired session removal")
		}
		return false
	}

	session.LastAccess = now
	r.sessions[id] = session
	r.mu.Unlock()

	if r.sample() < r.opts.PersistSampleRate {
		if err := r.persist(ctx, "touch"); err != nil {
			r.logger.Warn().Err(err).Msg("failed to persist refreshed session table")
		}
	}

	return true
}

// Get returns a copy of the session stored under id.
func (r *Registry) Get(id string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	return session, ok
}

// Delete removes id. It reports false when the session did not exist.
func (r *Registry) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	if _, ok := r.sessions[id]; !ok {
		r.mu.Unlock()
		return false, nil
	}
	delete(r.sessions, id)
	r.reportSizeLocked()
	r.mu.Unlock()

	if err := r.persist(ctx, "delete"); err != nil {
		return true, fmt.Errorf("persist session removal: %w", err)
	}

	r.logger.Info().Msg("session deleted")
	return true, nil
}

// PurgeExpired drops every session past its timeout and returns how many went.
func (r *Registry) PurgeExpired(ctx context.Context) int {
	r.mu.Lock()
	purged := r.purgeLocked(r.now().UTC())
	r.reportSizeLocked()
	r.mu.Unlock()

	if purged == 0 {
		return 0
	}

	r.logger.Info().Int("expired", purged).Msg("purged expired sessions")
	if err := r.persist(ctx, "purge"); err != nil {
		r.logger.Warn().Err(err).Msg("failed to persist purged session table")
	}
	return purged
}

// Stats counts live and expired sessions.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	stats := Stats{Total: len(r.sessions)}
	for _, session := range r.sessions {
		if r.expired(session, now) {
			stats.Expired++
		} else {
			stats.Active++
		}
	}
	return stats
}

// Start runs the periodic expiry sweep.
func (r *Registry) Start(ctx context.Context) {
	r.sweeper.Start(ctx)
}

// Stop halts the periodic expiry sweep.
func (r *Registry) Stop() {
	r.sweeper.Stop()
}

func (r *Registry) expired(session Session, now time.Time) bool {
	return now.Sub(session.CreatedAt) > r.opts.Timeout
}

func (r *Registry) purgeLocked(now time.Time) int {
	purged := 0
	for id, session := range r.sessions {
		if r.expired(session, now) {
			delete(r.sessions, id)
			purged++
		}
	}
	return purged
}

func (r *Registry) evictLocked(count int) int {
	ordered := slices.SortedFunc(maps.Values(r.sessions), func(a, b Session) int {
		return a.LastAccess.Compare(b.LastAccess)
	})
	if count > len(ordered) {
		count = len(ordered)
	}
	for _, session := range ordered[:count] {
		delete(r.sessions, session.ID)
	}
	return count
}

func (r *Registry) replace(sessions []Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions = make(map[string]Session, len(sessions))
	for _, session := range sessions {
		r.sessions[session.ID] = session
	}
	r.reportSizeLocked()
}

func (r *Registry) reportSizeLocked() {
	observability.SessionsActive().Set(float64(len(r.sessions)))
}

func (r *Registry) persist(ctx context.Context, operation string) error {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.Lock()
	snapshot := table{
		Sessions: slices.SortedFunc(maps.Values(r.sessions), func(a, b Session) int {
			return cmp.Compare(a.ID, b.ID)
		}),
		SavedAt: r.now().UTC(),
	}
	r.mu.Unlock()

	_, err := r.store.Write(ctx, r.key, snapshot, storage.Metadata{
		"type":      "sessions",
		"operation": operation,
	})
	return err
}

func generateID() (string, error) {
	buf := make([]byte, idBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
