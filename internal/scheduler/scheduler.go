// Package scheduler drives the periodic re-evaluation of cases and
// prisoners. Handlers can kick an immediate tick after state-changing events
// instead of waiting out the interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/platform/metrics"
)

// Ticker is anything with periodic work. Manager and Warden both satisfy it.
type Ticker interface {
	Tick(ctx context.Context) error
}

// Scheduler runs all registered tickers on a fixed interval and on demand.
type Scheduler struct {
	interval time.Duration
	tickers  []Ticker
	kick     chan struct{}
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMetrics records tick durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func New(interval time.Duration, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: interval,
		kick:     make(chan struct{}, 1),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a ticker. Not safe to call after Run starts.
func (s *Scheduler) Register(t Ticker) {
	s.tickers = append(s.tickers, t)
}

// Kick requests an immediate tick. Coalesces: kicking while a kick is
// already pending is a no-op.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tickAll(ctx)
		case <-s.kick:
			s.tickAll(ctx)
		}
	}
}

func (s *Scheduler) tickAll(ctx context.Context) {
	start := time.Now()
	for _, t := range s.tickers {
		if err := t.Tick(ctx); err != nil {
			s.logger.ErrorContext(ctx, "tick failed", "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.HeartbeatSeconds.Observe(time.Since(start).Seconds())
	}
}
