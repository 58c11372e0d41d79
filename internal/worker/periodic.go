package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Periodic runs a task on a fixed interval until stopped.
type Periodic struct {
	name     string
	interval time.Duration
	task     func(ctx context.Context)
	logger   zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPeriodic builds a stoppable ticker-driven task.
func NewPeriodic(name string, interval time.Duration, task func(ctx context.Context), logger zerolog.Logger) *Periodic {
	return &Periodic{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.With().Str("component", "worker").Str("task", name).Logger(),
	}
}

// Start launches the loop. Calling Start on a running task is a no-op.
func (p *Periodic) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil || p.interval <= 0 {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(runCtx, p.done)
	p.logger.Info().Dur("interval", p.interval).Msg("periodic task started")
}

// Stop cancels the loop and waits for the current run to finish.
func (p *Periodic) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Info().Msg("periodic task stopped")
}

func (p *Periodic) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.task(ctx)
		}
	}
}
