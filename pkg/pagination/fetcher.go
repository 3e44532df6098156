package pagination

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"time"

	"github.com/Sternrassler/gh-issue-slot/pkg/github"
	"github.com/Sternrassler/gh-issue-slot/pkg/logging"
	"github.com/Sternrassler/gh-issue-slot/pkg/ratelimit"
	"github.com/Sternrassler/gh-issue-slot/pkg/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	ghSearchPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_search_pages_total",
		Help: "Total number of search result pages fetched",
	})

	ghSearchItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gh_search_items_total",
		Help: "Total number of search results yielded",
	})

	ghSearchStopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_search_stops_total",
		Help: "Search sequences ended, by reason",
	}, []string{"reason"})
)

const (
	// MaxPerPage is the largest page size the search API accepts.
	MaxPerPage = 100

	// MaxSearchResults is how many results the search API serves per query.
	MaxSearchResults = 1000
)

// Stop reasons, used as metric labels and log fields.
const (
	stopComplete  = "complete"
	stopEmpty     = "empty_page"
	stopCap       = "result_cap"
	stopRateLimit = "rate_limit"
	stopError     = "error"
	stopConsumer  = "consumer"
	stopCanceled  = "canceled"
)

// Config holds fetcher configuration.
type Config struct {
	// PerPage is the page size, clamped to [1, MaxPerPage].
	PerPage int

	// MaxResults stops the walk once this many items were yielded.
	MaxResults int
}

// DefaultConfig returns the configuration for GitHub search.
func DefaultConfig() Config {
	return Config{
		PerPage:    MaxPerPage,
		MaxResults: MaxSearchResults,
	}
}

// Page is one page of search results.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Offset is the number of items received before this page.
	Offset int

	// TotalCount is the total reported by the API.
	TotalCount int

	// Incomplete is set when the API timed out internally.
	Incomplete bool

	Items []github.Item

	// Header carries the rate limit state of the answer.
	Header http.Header
}

// PageFetcher fetches a single page.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageNum, perPage int) (*Page, error)
}

// Fetcher turns a PageFetcher into a lazy item sequence.
type Fetcher struct {
	pages   PageFetcher
	limiter *ratelimit.Limiter
	config  Config
	logger  zerolog.Logger
}

// NewFetcher creates a new fetcher.
func NewFetcher(pages PageFetcher, limiter *ratelimit.Limiter, config Config) *Fetcher {
	if config.PerPage <= 0 || config.PerPage > MaxPerPage {
		config.PerPage = MaxPerPage
	}
	if config.MaxResults <= 0 {
		config.MaxResults = MaxSearchResults
	}

	return &Fetcher{
		pages:   pages,
		limiter: limiter,
		config:  config,
		logger:  logging.NewLogger("search-fetcher"),
	}
}

// Items returns the results as a finite, single-use sequence. Failures are
// reported through rep and end the sequence early.
//
// The limiter runs between pages only. Once the last page is in, there is
// no further request to protect, so an exhausted window after the final
// page neither sleeps nor reports a give-up.
func (f *Fetcher) Items(ctx context.Context, rep report.Reporter) iter.Seq[github.Item] {
	rep = report.OrNop(rep)

	return func(yield func(github.Item) bool) {
		start := time.Now()
		received := 0
		reason := stopComplete

		defer func() {
			ghSearchStopsTotal.WithLabelValues(reason).Inc()
			f.logger.Info().
				Int("received", received).
				Str("reason", reason).
				Dur("duration", time.Since(start)).
				Msg("Search finished")
		}()

		for pageNum := 1; ; pageNum++ {
			page, err := f.pages.FetchPage(ctx, pageNum, f.config.PerPage)
			if err != nil {
				reason = f.fail(ctx, rep, pageNum, err)
				return
			}
			page.Number = pageNum
			page.Offset = received
			ghSearchPagesTotal.Inc()

			f.logger.Debug().
				Int("page", pageNum).
				Int("items", len(page.Items)).
				Int("offset", page.Offset).
				Int("total_count", page.TotalCount).
				Bool("incomplete", page.Incomplete).
				Msg("Search page received")

			limit := min(page.TotalCount, f.config.MaxResults)
			for _, item := range page.Items {
				if received >= limit {
					break
				}
				received++
				ghSearchItemsTotal.Inc()
				if !yield(item) {
					reason = stopConsumer
					return
				}
			}

			switch {
			case received >= page.TotalCount:
				return
			case received >= f.config.MaxResults:
				reason = stopCap
				return
			case len(page.Items) < f.config.PerPage:
				reason = stopEmpty
				return
			}

			if err := f.limiter.Wait(ctx, page.Header, rep); err != nil {
				reason = stopRateLimit
				if !errors.Is(err, ratelimit.ErrRateLimitExceeded) {
					reason = stopCanceled
				}
				return
			}
		}
	}
}

// fail reports a failed page request unless the caller itself gave up.
func (f *Fetcher) fail(ctx context.Context, rep report.Reporter, pageNum int, err error) string {
	if ctx.Err() != nil {
		f.logger.Debug().Err(err).Int("page", pageNum).Msg("Search canceled by caller")
		return stopCanceled
	}

	f.logger.Error().
		Err(err).
		Int("page", pageNum).
		Str("error_class", string(github.Classify(err))).
		Msg("Search page failed - returning partial results")

	title, description := github.Describe(err)
	rep.Report(ctx, title, description)
	return stopError
}
