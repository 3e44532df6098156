// Package testutil provides a configurable mock GitHub API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines a canned answer for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockGitHub is a configurable mock GitHub API server.
type MockGitHub struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	requestCount      int
	pathCounts        map[string]int
	conditionalCount  int
	lastRequestHeader http.Header
	queries           []string

	// Rate limit headers added by the generated handlers
	rateRemaining int
	rateReset     time.Time
}

// NewMockGitHub creates and starts a mock server.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		handlers:      make(map[string]http.HandlerFunc),
		pathCounts:    make(map[string]int),
		rateRemaining: 4999,
		rateReset:     time.Now().Add(time.Hour),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.conditionalCount++
		}
		if q := r.URL.Query().Get("q"); q != "" {
			mock.queries = append(mock.queries, r.URL.RawQuery)
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockGitHub) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
	m.conditionalCount = 0
	m.lastRequestHeader = nil
	m.queries = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockGitHub) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockGitHub) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetRateLimit sets the X-RateLimit-* headers sent by generated handlers.
func (m *MockGitHub) SetRateLimit(remaining int, reset time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateRemaining = remaining
	m.rateReset = reset
}

func (m *MockGitHub) writeRateHeaders(w http.ResponseWriter) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w.Header().Set("X-RateLimit-Limit", "5000")
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(m.rateRemaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(m.rateReset.Unix(), 10))
}

// SearchItem builds a search result. Pull requests link to their detail
// resource on this server.
func (m *MockGitHub) SearchItem(number int, pullRequest bool) map[string]any {
	item := map[string]any{
		"id":         number * 1000,
		"number":     number,
		"title":      fmt.Sprintf("Item %d", number),
		"body":       fmt.Sprintf("Body of %d", number),
		"url":        fmt.Sprintf("%s/repos/o/r/issues/%d", m.URL(), number),
		"html_url":   fmt.Sprintf("https://github.com/o/r/issues/%d", number),
		"state":      "open",
		"user":       map[string]any{"login": "author"},
		"created_at": time.Date(2020, 1, 1, 0, 0, number, 0, time.UTC).Format(time.RFC3339),
		"updated_at": time.Date(2021, 1, 1, 0, 0, number, 0, time.UTC).Format(time.RFC3339),
	}
	if pullRequest {
		item["pull_request"] = map[string]any{
			"url":      m.PullRequestURL(number),
			"html_url": fmt.Sprintf("https://github.com/o/r/pull/%d", number),
		}
	}
	return item
}

// PullRequestPath is the detail path of pull request number.
func PullRequestPath(number int) string {
	return fmt.Sprintf("/repos/o/r/pulls/%d", number)
}

// PullRequestURL is the detail URL of pull request number.
func (m *MockGitHub) PullRequestURL(number int) string {
	return m.URL() + PullRequestPath(number)
}

// ServeSearch answers /search/issues from items, paginated by the page and
// per_page query parameters. totalCount is reported as given, so tests can
// make it disagree with len(items).
func (m *MockGitHub) ServeSearch(items []map[string]any, totalCount int) {
	m.SetHandler("/search/issues", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		if perPage < 1 {
			perPage = 30
		}

		start := (page - 1) * perPage
		end := start + perPage
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}

		m.writeJSON(w, http.StatusOK, map[string]any{
			"total_count":        totalCount,
			"incomplete_results": false,
			"items":              items[start:end],
		})
	})
}

// ServePullRequest answers the detail resource of pull request number with
// the given requested reviewers.
func (m *MockGitHub) ServePullRequest(number int, reviewers ...string) {
	requested := make([]map[string]any, 0, len(reviewers))
	for _, login := range reviewers {
		requested = append(requested, map[string]any{"login": login})
	}

	detail := m.SearchItem(number, false)
	detail["url"] = m.PullRequestURL(number)
	detail["html_url"] = fmt.Sprintf("https://github.com/o/r/pull/%d", number)
	detail["requested_reviewers"] = requested

	m.SetHandler(PullRequestPath(number), func(w http.ResponseWriter, r *http.Request) {
		m.writeJSON(w, http.StatusOK, detail)
	})
}

// ServeConditionalPullRequest is ServePullRequest with ETag revalidation:
// a matching If-None-Match is answered with 304.
func (m *MockGitHub) ServeConditionalPullRequest(number int, etag string, reviewers ...string) {
	m.ServePullRequest(number, reviewers...)

	m.mu.RLock()
	full := m.handlers[PullRequestPath(number)]
	m.mu.RUnlock()

	m.SetHandler(PullRequestPath(number), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "private, max-age=60")
		if r.Header.Get("If-None-Match") == etag {
			m.writeRateHeaders(w)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		full(w, r)
	})
}

func (m *MockGitHub) writeJSON(w http.ResponseWriter, status int, v any) {
	m.writeRateHeaders(w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockGitHub) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// GetPathCount returns the number of requests made to path.
func (m *MockGitHub) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// GetPrefixCount returns the number of requests to paths starting with prefix.
func (m *MockGitHub) GetPrefixCount(prefix string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for path, count := range m.pathCounts {
		if strings.HasPrefix(path, prefix) {
			n += count
		}
	}
	return n
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockGitHub) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// LastRequestHeader returns the headers of the latest request.
func (m *MockGitHub) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader.Clone()
}

// Queries returns the raw query strings of all search requests.
func (m *MockGitHub) Queries() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.queries...)
}

// SearchItems builds n search results numbered from 1.
func (m *MockGitHub) SearchItems(n int, pullRequests bool) []map[string]any {
	items := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, m.SearchItem(i, pullRequests))
	}
	return items
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Server Error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitedResponse creates the 403 GitHub sends once the quota is gone.
func NewRateLimitedResponse(reset time.Time) MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message": "API rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.FormatInt(reset.Unix(), 10),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewSlowResponse creates a 200 answer delayed by d.
func NewSlowResponse(d time.Duration, body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Delay:      d,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
