package github

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/gh-issue-slot/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL, token string) *Client {
	t.Helper()

	cfg := DefaultConfig(token)
	cfg.BaseURL = baseURL
	cfg.RequestTimeout = 2 * time.Second

	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:     "empty base url",
			mutate:   func(c *Config) { c.BaseURL = "" },
			errorMsg: "base url is required",
		},
		{
			name:     "relative base url",
			mutate:   func(c *Config) { c.BaseURL = "api.github.com" },
			errorMsg: `invalid base url "api.github.com"`,
		},
		{
			name:     "empty user agent",
			mutate:   func(c *Config) { c.UserAgent = "" },
			errorMsg: "user-agent is required",
		},
		{
			name:     "zero timeout",
			mutate:   func(c *Config) { c.RequestTimeout = 0 },
			errorMsg: "request_timeout must be > 0 (got 0s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("")
			tt.mutate(&cfg)

			c, err := New(cfg)
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("tok")

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "tok", cfg.Token)
	assert.NotEmpty(t, cfg.UserAgent)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Nil(t, cfg.Cache)
}

func TestClient_URL(t *testing.T) {
	c := newTestClient(t, "https://ghe.example.com/api/v3/", "")

	assert.Equal(t, "https://ghe.example.com/api/v3", c.BaseURL())
	assert.Equal(t, "https://ghe.example.com/api/v3/search/issues", c.URL("/search/issues", ""))
	assert.Equal(t, "https://ghe.example.com/api/v3/rate_limit?a=1", c.URL("rate_limit", "a=1"))
}

func TestDo_Headers(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		wantAuth string
	}{
		{"authenticated", "s3cret", "token s3cret"},
		{"anonymous", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockGitHub()
			defer mock.Close()
			mock.ServePullRequest(1)

			c := newTestClient(t, mock.URL(), tt.token)
			assert.Equal(t, tt.token != "", c.Authenticated())

			var item Item
			_, err := c.GetJSON(context.Background(), mock.PullRequestURL(1), &item)
			require.NoError(t, err)

			h := mock.LastRequestHeader()
			assert.Equal(t, tt.wantAuth, h.Get("Authorization"))
			assert.Equal(t, "application/vnd.github+json", h.Get("Accept"))
			assert.Equal(t, "gh-issue-slot/0.1.0", h.Get("User-Agent"))
		})
	}
}

func TestGetJSON_DecodesAndReturnsHeaders(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.ServePullRequest(42, "alice", "bob")
	reset := time.Now().Add(10 * time.Minute)
	mock.SetRateLimit(17, reset)

	c := newTestClient(t, mock.URL(), "")

	var item Item
	h, err := c.GetJSON(context.Background(), mock.PullRequestURL(42), &item)
	require.NoError(t, err)

	assert.Equal(t, 42, item.Number)
	assert.Equal(t, "Item 42", item.Title)
	assert.Equal(t, []User{{Login: "alice"}, {Login: "bob"}}, item.RequestedReviewers)
	assert.False(t, item.CreatedAt.IsZero())
	assert.Equal(t, "17", h.Get("X-RateLimit-Remaining"))
}

func TestGetJSON_ErrorClasses(t *testing.T) {
	tests := []struct {
		name       string
		resp       testutil.MockResponse
		wantClass  ErrorClass
		wantStatus int
		wantTitle  string
	}{
		{
			name:       "not found",
			resp:       testutil.MockResponse{StatusCode: http.StatusNotFound, Body: `{"message":"Not Found"}`},
			wantClass:  ErrorClassClient,
			wantStatus: http.StatusNotFound,
			wantTitle:  "API Request failed",
		},
		{
			name:       "validation failed",
			resp:       testutil.MockResponse{StatusCode: http.StatusUnprocessableEntity, Body: `{"message":"Validation Failed"}`},
			wantClass:  ErrorClassClient,
			wantStatus: http.StatusUnprocessableEntity,
			wantTitle:  "API Request failed",
		},
		{
			name:       "server error",
			resp:       testutil.NewServerErrorResponse(),
			wantClass:  ErrorClassServer,
			wantStatus: http.StatusInternalServerError,
			wantTitle:  "API Request failed",
		},
		{
			name:       "quota exhausted",
			resp:       testutil.NewRateLimitedResponse(time.Now().Add(time.Hour)),
			wantClass:  ErrorClassRateLimit,
			wantStatus: http.StatusForbidden,
			wantTitle:  "API rate limit exceeded",
		},
		{
			name:       "forbidden with quota left",
			resp:       testutil.MockResponse{StatusCode: http.StatusForbidden, Body: `{"message":"Resource not accessible"}`, Headers: map[string]string{"X-RateLimit-Remaining": "100"}},
			wantClass:  ErrorClassClient,
			wantStatus: http.StatusForbidden,
			wantTitle:  "API Request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockGitHub()
			defer mock.Close()
			mock.SetResponse("/thing", tt.resp)

			c := newTestClient(t, mock.URL(), "")

			var v map[string]any
			_, err := c.GetJSON(context.Background(), mock.URL()+"/thing", &v)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantClass, Classify(err))

			title, _ := Describe(err)
			assert.Equal(t, tt.wantTitle, title)
		})
	}
}

func TestGetJSON_Timeout(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetResponse("/slow", testutil.NewSlowResponse(2*time.Second, `{}`))

	cfg := DefaultConfig("")
	cfg.BaseURL = mock.URL()
	cfg.RequestTimeout = 50 * time.Millisecond
	c, err := New(cfg)
	require.NoError(t, err)

	var v map[string]any
	_, err = c.GetJSON(context.Background(), mock.URL()+"/slow", &v)

	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, ErrorClassTimeout, Classify(err))

	title, desc := Describe(err)
	assert.Equal(t, "API Request timed out", title)
	assert.Equal(t, "Please check https://www.githubstatus.com/", desc)
}

func TestGetJSON_Canceled(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.ServePullRequest(1)

	c := newTestClient(t, mock.URL(), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var item Item
	_, err := c.GetJSON(ctx, mock.PullRequestURL(1), &item)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ErrorClassCanceled, Classify(err))
}

func TestGetJSON_DecodeError(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetResponse("/garbage", testutil.MockResponse{StatusCode: http.StatusOK, Body: `<html>`})

	c := newTestClient(t, mock.URL(), "")

	var item Item
	_, err := c.GetJSON(context.Background(), mock.URL()+"/garbage", &item)

	require.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, ErrorClassDecode, Classify(err))
}

func TestEndpointLabel(t *testing.T) {
	tests := map[string]string{
		"/search/issues":            "search/issues",
		"/api/v3/search/issues":     "search/issues",
		"/repos/o/r/pulls/12":       "pulls",
		"/repos/o/r/issues/12":      "issues",
		"/rate_limit":               "rate_limit",
		"/users/octocat":            "other",
		"/repos/o/r/pulls/12/files": "pulls",
	}

	for path, want := range tests {
		assert.Equal(t, want, endpointLabel(path), path)
	}
}

func TestItem_Helpers(t *testing.T) {
	issue := Item{Number: 1}
	pr := Item{
		Number:             2,
		PullRequest:        &PullRequestRef{URL: "https://api.github.com/repos/o/r/pulls/2"},
		RequestedReviewers: []User{{Login: "alice"}, {Login: "bob"}},
	}

	assert.False(t, issue.IsPullRequest())
	assert.Empty(t, issue.DetailURL())
	assert.True(t, pr.IsPullRequest())
	assert.Equal(t, "https://api.github.com/repos/o/r/pulls/2", pr.DetailURL())

	assert.True(t, pr.HasRequestedReviewer("bob"))
	assert.False(t, pr.HasRequestedReviewer("Bob"))
	assert.False(t, issue.HasRequestedReviewer("alice"))
}
