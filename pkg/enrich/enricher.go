// Package enrich replaces search summaries of pull requests with their
// detail resource, which carries the requested reviewers.
package enrich

import (
	"context"
	"iter"
	"net/http"

	"github.com/Sternrassler/gh-issue-slot/pkg/github"
	"github.com/Sternrassler/gh-issue-slot/pkg/logging"
	"github.com/Sternrassler/gh-issue-slot/pkg/ratelimit"
	"github.com/Sternrassler/gh-issue-slot/pkg/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	ghEnrichTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_enrich_total",
		Help: "Detail fetches by result (ok, skipped, error)",
	}, []string{"result"})
)

// DetailGetter fetches and decodes a single resource.
type DetailGetter interface {
	GetJSON(ctx context.Context, rawURL string, v any) (http.Header, error)
}

// Enricher fetches pull request details one at a time.
type Enricher struct {
	client  DetailGetter
	limiter *ratelimit.Limiter
	logger  zerolog.Logger
}

// New creates an enricher. client is usually a *github.Client.
func New(client DetailGetter, limiter *ratelimit.Limiter) *Enricher {
	return &Enricher{
		client:  client,
		limiter: limiter,
		logger:  logging.NewLogger("enricher"),
	}
}

// PullRequests yields the detail resource of every pulled item, in input
// order. A failed fetch or a rate limit give-up is reported through rep and
// ends the sequence. Items without a detail URL are skipped.
func (e *Enricher) PullRequests(ctx context.Context, items iter.Seq[github.Item], rep report.Reporter) iter.Seq[github.Item] {
	rep = report.OrNop(rep)

	return func(yield func(github.Item) bool) {
		for item := range items {
			detailURL := item.DetailURL()
			if detailURL == "" {
				ghEnrichTotal.WithLabelValues("skipped").Inc()
				e.logger.Warn().Int("number", item.Number).Msg("Item has no pull request link - skipping")
				continue
			}

			var detail github.Item
			header, err := e.client.GetJSON(ctx, detailURL, &detail)
			if err != nil {
				ghEnrichTotal.WithLabelValues("error").Inc()
				if ctx.Err() != nil {
					e.logger.Debug().Err(err).Int("number", item.Number).Msg("Enrichment canceled by caller")
					return
				}
				e.logger.Error().
					Err(err).
					Int("number", item.Number).
					Str("error_class", string(github.Classify(err))).
					Msg("Pull request detail failed - stopping")

				title, description := github.Describe(err)
				rep.Report(ctx, title, description)
				return
			}
			ghEnrichTotal.WithLabelValues("ok").Inc()

			// keep the html link of the summary when the detail omits it
			if detail.HTMLURL == "" {
				detail.HTMLURL = item.HTMLURL
			}
			if detail.PullRequest == nil {
				detail.PullRequest = item.PullRequest
			}

			e.logger.Debug().
				Int("number", detail.Number).
				Int("requested_reviewers", len(detail.RequestedReviewers)).
				Msg("Pull request enriched")

			if !yield(detail) {
				return
			}

			if err := e.limiter.Wait(ctx, header, rep); err != nil {
				return
			}
		}
	}
}
