// Package pipeline runs one pick: search, optional review scan and
// selection, with every failure degraded to fewer items plus a notice.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/gh-issue-slot/pkg/enrich"
	"github.com/Sternrassler/gh-issue-slot/pkg/filter"
	"github.com/Sternrassler/gh-issue-slot/pkg/github"
	"github.com/Sternrassler/gh-issue-slot/pkg/logging"
	"github.com/Sternrassler/gh-issue-slot/pkg/pagination"
	"github.com/Sternrassler/gh-issue-slot/pkg/ratelimit"
	"github.com/Sternrassler/gh-issue-slot/pkg/report"
	"github.com/Sternrassler/gh-issue-slot/pkg/search"
	"github.com/Sternrassler/gh-issue-slot/pkg/selection"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	selectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_selections_total",
		Help: "Completed runs by strategy and whether the result was short",
	}, []string{"strategy", "short"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gh_run_duration_seconds",
		Help:    "Run duration in seconds by strategy",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"strategy"})
)

// ErrUnknownStrategy is returned for a strategy name Run does not know.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy names a selection command.
type Strategy string

const (
	// StrategyRandom picks random open items.
	StrategyRandom Strategy = "rand"
	// StrategyFeedback picks the oldest items of the feedback queue.
	StrategyFeedback Strategy = "fq"
	// StrategyReview picks the oldest pull requests of the review queue.
	StrategyReview Strategy = "rq"
)

// Strategies lists all known strategies.
var Strategies = []Strategy{StrategyRandom, StrategyFeedback, StrategyReview}

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(name)
	if !slices.Contains(Strategies, s) {
		return "", fmt.Errorf("%w %q", ErrUnknownStrategy, name)
	}
	return s, nil
}

// Invocation is one request for a selection.
type Invocation struct {
	// ID identifies the run in logs; generated when empty.
	ID       string
	Strategy Strategy
	Query    search.Query

	// Count is the number of items wanted. Run corrects values outside
	// [1, MaxCount] with CheckCount.
	Count int

	// Identity is whose pending reviews to scan (review strategy only).
	Identity string
}

// Runner carries everything one run needs. A Runner is safe for
// concurrent use; runs are not coordinated with each other.
type Runner struct {
	client  *github.Client
	limiter *ratelimit.Limiter
	pages   pagination.Config
	logger  zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures a Runner.
type Option func(*Runner)

// WithRand sets the random source used by the random strategy.
func WithRand(rng *rand.Rand) Option {
	return func(r *Runner) { r.rng = rng }
}

// WithPagination overrides the search paging configuration.
func WithPagination(cfg pagination.Config) Option {
	return func(r *Runner) { r.pages = cfg }
}

// NewRunner creates a runner.
func NewRunner(client *github.Client, limiter *ratelimit.Limiter, opts ...Option) *Runner {
	r := &Runner{
		client:  client,
		limiter: limiter,
		pages:   pagination.DefaultConfig(),
		logger:  logging.NewLogger("pipeline"),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one invocation. It only fails on an unknown strategy or a
// malformed query; an out of range count is corrected and reported, and
// network trouble ends the search early, is reported through rep and
// yields a short selection.
func (r *Runner) Run(ctx context.Context, inv Invocation, rep report.Reporter) (selection.Selection, error) {
	rep = report.OrNop(rep)

	if _, err := ParseStrategy(string(inv.Strategy)); err != nil {
		return selection.Selection{}, err
	}
	if inv.Strategy == StrategyReview {
		inv.Query.Kind = search.KindPullRequest
	}
	if err := inv.Query.Validate(); err != nil {
		return selection.Selection{}, fmt.Errorf("invalid query: %w", err)
	}
	inv.Count = CheckCount(ctx, inv.Count, rep)
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}

	logger := r.logger.With().
		Str("run_id", inv.ID).
		Str("strategy", string(inv.Strategy)).
		Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().
		Str("query", inv.Query.String()).
		Int("count", inv.Count).
		Str("identity", inv.Identity).
		Msg("Run started")
	start := time.Now()

	fetcher := pagination.NewFetcher(search.NewPageSource(r.client, inv.Query), r.limiter, r.pages)
	items := fetcher.Items(ctx, rep)

	var sel selection.Selection
	switch inv.Strategy {
	case StrategyRandom:
		all := slices.Collect(items)
		r.rngMu.Lock()
		sel = selection.RandomSample(all, inv.Count, r.rng)
		r.rngMu.Unlock()
	case StrategyFeedback:
		sel = selection.OldestPrefix(slices.Collect(items), inv.Count, inv.Query.Kind)
	case StrategyReview:
		enricher := enrich.New(r.client, r.limiter)
		pending := func(seq iter.Seq[github.Item]) iter.Seq[github.Item] {
			return filter.PendingReview(enricher.PullRequests(ctx, seq, rep), inv.Identity)
		}
		sel = selection.ReviewQueueScan(items, inv.Count, inv.Identity, pending)
	}

	elapsed := time.Since(start)
	selectionsTotal.WithLabelValues(string(inv.Strategy), strconv.FormatBool(sel.Short)).Inc()
	runDuration.WithLabelValues(string(inv.Strategy)).Observe(elapsed.Seconds())

	logger.Info().
		Int("selected", len(sel.Items)).
		Bool("short", sel.Short).
		Dur("duration", elapsed).
		Msg("Run finished")

	return sel, nil
}
