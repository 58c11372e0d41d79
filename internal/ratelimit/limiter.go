package ratelimit

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/assignment-portal-api/internal/observability"
	"github.com/noah-isme/assignment-portal-api/internal/worker"
)

const (
	// DefaultSweepInterval bounds how long empty windows linger in memory.
	DefaultSweepInterval = 5 * time.Minute
	topUsersLimit        = 10
)

// Config describes one admission policy.
type Config struct {
	Name          string
	MaxRequests   int
	Window        time.Duration
	SweepInterval time.Duration
}

// Decision is the result of a single admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// KeyUsage reports how many in-window requests a key holds.
type KeyUsage struct {
	Key      string `json:"key"`
	Requests int    `json:"requests"`
}

// Stats summarises the limiter state.
type Stats struct {
	Name           string     `json:"name"`
	MaxRequests    int        `json:"max_requests"`
	WindowSeconds  float64    `json:"window_seconds"`
	TotalKeys      int        `json:"total_keys"`
	ActiveRequests int        `json:"active_requests"`
	TopUsers       []KeyUsage `json:"top_users"`
}

// Limiter is a per-key sliding window limiter. Instances are independent.
type Limiter struct {
	name   string
	max    int
	window time.Duration

	mu      sync.Mutex
	windows map[string][]time.Time

	sweeper *worker.Periodic
	logger  zerolog.Logger
	now     func() time.Time
}

// New builds a limiter for the given policy.
func New(cfg Config, logger zerolog.Logger) *Limiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	l := &Limiter{
		name:    cfg.Name,
		max:     cfg.MaxRequests,
		window:  cfg.Window,
		windows: make(map[string][]time.Time),
		logger:  logger.With().Str("component", "rate_limiter").Str("policy", cfg.Name).Logger(),
		now:     time.Now,
	}
	l.sweeper = worker.NewPeriodic("rate_limit_sweep:"+cfg.Name, cfg.SweepInterval, func(context.Context) {
		if removed := l.Sweep(); removed > 0 {
			l.logger.Debug().Int("removed", removed).Msg("swept idle rate limit keys")
		}
	}, logger)

	return l
}

// Name returns the policy name.
func (l *Limiter) Name() string {
	return l.name
}

// Limit returns the request ceiling per window.
func (l *Limiter) Limit() int {
	return l.max
}

// Allow checks key against the window and records the request when admitted.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	requests := l.prune(key, now)

	if len(requests) >= l.max {
		observability.AdmissionDecisions().WithLabelValues(l.name, "denied").Inc()
		return Decision{
			Allowed:   false,
			Limit:     l.max,
			Remaining: 0,
			ResetAt:   requests[0].Add(l.window),
		}
	}

	requests = append(requests, now)
	l.windows[key] = requests
	observability.AdmissionDecisions().WithLabelValues(l.name, "allowed").Inc()

	return Decision{
		Allowed:   true,
		Limit:     l.max,
		Remaining: l.max - len(requests),
		ResetAt:   now.Add(l.window),
	}
}

// Sweep prunes every window and drops keys left empty. It returns the number
// of keys removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key := range l.windows {
		if len(l.prune(key, now)) == 0 {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Stats reports key counts and the heaviest callers.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	stats := Stats{
		Name:          l.name,
		MaxRequests:   l.max,
		WindowSeconds: l.window.Seconds(),
		TotalKeys:     len(l.windows),
		TopUsers:      []KeyUsage{},
	}

	usage := make([]KeyUsage, 0, len(l.windows))
	for key, requests := range l.windows {
		count := 0
		for _, ts := range requests {
			if l.inWindow(ts, now) {
				count++
			}
		}
		stats.ActiveRequests += count
		if count > 0 {
			usage = append(usage, KeyUsage{Key: key, Requests: count})
		}
	}

	slices.SortFunc(usage, func(a, b KeyUsage) int {
		if c := cmp.Compare(b.Requests, a.Requests); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	if len(usage) > topUsersLimit {
		usage = usage[:topUsersLimit]
	}
	stats.TopUsers = append(stats.TopUsers, usage...)

	return stats
}

// Start runs the periodic sweep until Stop is called or ctx ends.
func (l *Limiter) Start(ctx context.Context) {
	l.sweeper.Start(ctx)
}

// Stop halts the periodic sweep.
func (l *Limiter) Stop() {
	l.sweeper.Stop()
}

// prune drops expired timestamps for key. Callers hold l.mu.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	requests := l.windows[key]
	idx := 0
	for idx < len(requests) && !l.inWindow(requests[idx], now) {
		idx++
	}
	if idx == 0 {
		return requests
	}

	kept := slices.Clone(requests[idx:])
	if len(kept) == 0 {
		// Keep the key until the sweep removes it.
		l.windows[key] = nil
		return nil
	}
	l.windows[key] = kept
	return kept
}

func (l *Limiter) inWindow(ts, now time.Time) bool {
	return now.Sub(ts) < l.window
}
