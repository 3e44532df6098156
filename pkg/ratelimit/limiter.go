package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/Sternrassler/gh-issue-slot/pkg/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit handling.
var (
	ghRateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gh_rate_limit_remaining",
		Help: "Requests remaining in the current GitHub rate limit window (last seen)",
	})

	ghRateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_rate_limit_waits_total",
		Help: "Total number of suspensions before the rate limit window reset",
	})

	ghRateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gh_rate_limit_wait_seconds",
		Help:    "Planned suspension before the rate limit window reset",
		Buckets: []float64{1, 5, 10, 20, 30, 45, 61},
	})

	ghRateLimitGiveUpsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_rate_limit_give_ups_total",
		Help: "Total number of sequences stopped because the wait exceeded the limit",
	})
)

// ErrRateLimitExceeded is returned by Wait when the projected wait is too long.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// Sleeper suspends the caller for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Limiter applies the rate limit decision to the calling goroutine.
// A Limiter holds no state between calls and is safe for concurrent use.
type Limiter struct {
	reporter report.Reporter
	logger   zerolog.Logger
	now      func() time.Time
	sleep    Sleeper
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSleeper overrides the timer-based sleep.
func WithSleeper(s Sleeper) Option {
	return func(l *Limiter) { l.sleep = s }
}

// WithReporter sets the default reporter used when Wait is given none.
func WithReporter(r report.Reporter) Option {
	return func(l *Limiter) { l.reporter = report.OrNop(r) }
}

// NewLimiter creates a new Limiter.
func NewLimiter(logger zerolog.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		reporter: report.Nop,
		logger:   logger,
		now:      time.Now,
		sleep:    SleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Wait inspects the headers of the latest response and suspends the caller
// when the window is about to run out. It returns ErrRateLimitExceeded when
// the wait would be longer than MaxWait, after reporting it through rep
// (or the limiter's default reporter when rep is nil).
func (l *Limiter) Wait(ctx context.Context, h http.Header, rep report.Reporter) error {
	if rep == nil {
		rep = l.reporter
	}

	snap, ok, err := FromHeaders(h)
	if err != nil {
		l.logger.Warn().Err(err).Msg("Ignoring malformed rate limit headers")
		return nil
	}
	if !ok {
		return nil
	}

	ghRateLimitRemaining.Set(float64(snap.Remaining))

	now := l.now()
	wait, giveUp := Plan(snap, now)
	if giveUp {
		ghRateLimitGiveUpsTotal.Inc()
		l.logger.Error().
			Int("remaining", snap.Remaining).
			Time("reset_at", snap.Reset).
			Dur("until_reset", snap.TimeUntilReset(now)).
			Dur("wait", wait).
			Msg("Rate limit wait too long - giving up")

		rep.Report(ctx, "API Request timed out",
			fmt.Sprintf("Try again after %d seconds", int(math.Ceil(wait.Seconds()))))
		return ErrRateLimitExceeded
	}
	if wait == 0 {
		return nil
	}

	ghRateLimitWaitsTotal.Inc()
	ghRateLimitWaitSeconds.Observe(wait.Seconds())
	l.logger.Warn().
		Int("remaining", snap.Remaining).
		Time("reset_at", snap.Reset).
		Dur("until_reset", snap.TimeUntilReset(now)).
		Dur("wait", wait).
		Msg("Rate limit almost exhausted - waiting for reset")

	if err := l.sleep(ctx, wait); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// SleepContext waits for d without blocking other goroutines and returns
// early with the context error when ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
