// Package metrics exposes the Prometheus registry of gh-issue-slot.
// All metrics are defined in their respective packages (github, cache,
// ratelimit, pagination, enrich, pipeline) and registered via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all packages register with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler serves all registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - gh_rate_limit_remaining (Gauge): Requests left in the current window
//   - gh_rate_limit_waits_total (Counter): Waits for a window reset
//   - gh_rate_limit_wait_seconds (Histogram): Length of those waits
//   - gh_rate_limit_give_ups_total (Counter): Runs ended because the reset was too far away
//
// Cache Metrics (pkg/cache):
//   - gh_cache_hits_total (Counter): Stored entries found for a request
//   - gh_cache_misses_total (Counter): Requests without a stored entry
//   - gh_cache_revalidated_total (Counter): 304 Not Modified answers served from the cache
//   - gh_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/github):
//   - gh_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - gh_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - gh_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, timeout, canceled, decode)
//
// Search Metrics (pkg/pagination, pkg/enrich):
//   - gh_search_pages_total (Counter): Search result pages fetched
//   - gh_search_items_total (Counter): Search results yielded
//   - gh_search_stops_total{reason} (Counter): Why result sequences ended
//   - gh_enrich_total{result} (Counter): Pull request detail fetches (ok, skipped, error)
//
// Run Metrics (pkg/pipeline):
//   - gh_selections_total{strategy, short} (Counter): Completed runs
//   - gh_run_duration_seconds{strategy} (Histogram): Run duration
//
// Example Prometheus Queries:
//
//   # Share of short selections
//   sum(rate(gh_selections_total{short="true"}[1h])) / sum(rate(gh_selections_total[1h]))
//
//   # Quota nearly gone
//   gh_rate_limit_remaining < 100
//
//   # Runs cut off by failures
//   sum by (reason) (rate(gh_search_stops_total{reason=~"error|rate_limit"}[1h]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(gh_request_duration_seconds_bucket[5m]))
//
//   # Revalidation Rate
//   rate(gh_cache_revalidated_total[5m]) / rate(gh_requests_total{endpoint="pulls"}[5m])
