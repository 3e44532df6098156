// Package github provides the GitHub REST client used by the fetch pipeline:
// authentication header, per-request deadlines, error classification,
// optional response revalidation and metrics.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/gh-issue-slot/pkg/cache"
	"github.com/Sternrassler/gh-issue-slot/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for GitHub client operations.
var (
	ghRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_requests_total",
		Help: "Total GitHub API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	ghRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gh_request_duration_seconds",
		Help:    "GitHub API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	ghErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_errors_total",
		Help: "Total GitHub API errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the public GitHub REST API.
const DefaultBaseURL = "https://api.github.com"

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 4 << 10

// Client talks to the GitHub REST API.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the REST API (GitHub Enterprise: https://host/api/v3)
	BaseURL string

	// Token is an opaque credential sent as "Authorization: token <Token>".
	// Empty means unauthenticated requests (lower quota).
	Token string

	// UserAgent header (required by GitHub)
	UserAgent string

	// RequestTimeout bounds every single request including its body.
	RequestTimeout time.Duration

	// Cache enables conditional requests when non-nil.
	Cache *cache.Manager
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(token string) Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		Token:          token,
		UserAgent:      "gh-issue-slot/0.1.0",
		RequestTimeout: 30 * time.Second,
	}
}

// New creates a new GitHub client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request_timeout must be > 0 (got %s)", cfg.RequestTimeout)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		httpClient: &http.Client{},
		cache:      cfg.Cache,
		config:     cfg,
		logger:     logging.NewLogger("github-client"),
	}, nil
}

// BaseURL returns the configured API root without trailing slash.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Authenticated reports whether requests carry a token.
func (c *Client) Authenticated() bool {
	return c.config.Token != ""
}

// Do performs a request with authentication, revalidation and error
// classification. Answers >= 400 are returned as *APIError with the body
// already closed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := endpointLabel(req.URL.Path)

	startTime := time.Now()
	defer func() {
		ghRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "token "+c.config.Token)
	}

	// Revalidate a stored copy when caching is enabled
	var (
		cacheKey    cache.CacheKey
		cachedEntry *cache.CacheEntry
	)
	if c.cache != nil && req.Method == http.MethodGet {
		cacheKey = cache.KeyForRequest(req, c.config.Token)
		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		if entry != nil && cache.ShouldMakeConditionalRequest(entry) {
			cachedEntry = entry
			cache.AddConditionalHeaders(req, entry)
			c.logger.Debug().
				Str("endpoint", endpoint).
				Str("etag", entry.ETag).
				Msg("Making conditional request")
		}
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Msg("Executing GitHub request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		switch {
		case isTimeout(err):
			err = timeoutError(endpoint, time.Since(startTime).Round(time.Millisecond), err)
		case errors.Is(err, context.Canceled):
			err = fmt.Errorf("%s: %w", endpoint, err)
		default:
			err = fmt.Errorf("request %s: %w", endpoint, err)
		}
		class := Classify(err)
		ghErrorsTotal.WithLabelValues(string(class)).Inc()
		ghRequestsTotal.WithLabelValues(endpoint, string(class)).Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Str("error_class", string(class)).Msg("GitHub request failed")
		return nil, err
	}

	ghRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		resp.Body.Close()
		cache.Revalidated.Inc()
		if err := c.cache.Refresh(ctx, cacheKey, cachedEntry, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		return cache.EntryToResponse(cachedEntry, resp.Header), nil
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp),
			Message:    readErrorMessage(resp),
			Header:     resp.Header.Clone(),
		}
		resp.Body.Close()
		ghErrorsTotal.WithLabelValues(string(apiErr.ErrorClass)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(apiErr.ErrorClass)).
			Msg("GitHub request error")
		return nil, apiErr
	}

	if c.cache != nil && req.Method == http.MethodGet && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return resp, nil
}

// GetJSON fetches rawURL and decodes the JSON body into v. The returned
// headers belong to the answer and carry its rate limit state. The whole
// exchange, body included, is bounded by the configured RequestTimeout.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) (http.Header, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		endpoint := endpointLabel(req.URL.Path)
		if isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = timeoutError(endpoint, c.config.RequestTimeout, err)
		} else {
			err = fmt.Errorf("%w from %s: %v", ErrDecode, endpoint, err)
		}
		ghErrorsTotal.WithLabelValues(string(Classify(err))).Inc()
		return resp.Header, err
	}

	return resp.Header, nil
}

// URL joins a path and an already encoded query onto the base URL.
func (c *Client) URL(path, rawQuery string) string {
	u := c.BaseURL() + "/" + strings.TrimLeft(path, "/")
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

// endpointLabel maps a request path to a low-cardinality metric label.
func endpointLabel(path string) string {
	switch {
	case strings.Contains(path, "/search/issues"):
		return "search/issues"
	case strings.Contains(path, "/pulls/"):
		return "pulls"
	case strings.Contains(path, "/issues/"):
		return "issues"
	case strings.HasSuffix(path, "/rate_limit"):
		return "rate_limit"
	default:
		return "other"
	}
}

// readErrorMessage extracts GitHub's {"message": ...} from an error body.
func readErrorMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return resp.Status
	}

	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}
