package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks entries found for an outgoing request.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gh_cache_hits_total",
			Help: "Total number of GitHub response cache hits",
		},
	)

	// CacheMisses tracks requests with no stored entry.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gh_cache_misses_total",
			Help: "Total number of GitHub response cache misses",
		},
	)

	// Revalidated tracks 304 Not Modified answers served from the cache.
	Revalidated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gh_cache_revalidated_total",
			Help: "Total number of 304 Not Modified responses served from cache",
		},
	)

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gh_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
