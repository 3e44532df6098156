//go:build integration

package github

import (
	"context"
	"testing"
	"time"

	"github.com/Sternrassler/gh-issue-slot/internal/testutil"
	"github.com/Sternrassler/gh-issue-slot/pkg/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start Redis container")

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() {
		client.Close()
		_ = redisContainer.Terminate(ctx)
	})

	return client
}

func TestIntegration_ConditionalRevalidation(t *testing.T) {
	redisClient := setupRedisContainer(t)

	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.ServeConditionalPullRequest(5, `"pr5-v1"`, "alice")

	cfg := DefaultConfig("tok")
	cfg.BaseURL = mock.URL()
	cfg.RequestTimeout = 5 * time.Second
	cfg.Cache = cache.NewManager(redisClient)
	c, err := New(cfg)
	require.NoError(t, err)

	ctx := context.Background()

	// Request 1: cache miss, full answer stored
	var first Item
	_, err = c.GetJSON(ctx, mock.PullRequestURL(5), &first)
	require.NoError(t, err)
	assert.Equal(t, 0, mock.GetConditionalCount())

	// Request 2: conditional, 304 served from Redis
	mock.SetRateLimit(3, time.Now().Add(time.Minute))
	var second Item
	h, err := c.GetJSON(ctx, mock.PullRequestURL(5), &second)
	require.NoError(t, err)

	assert.Equal(t, 1, mock.GetConditionalCount())
	assert.Equal(t, 2, mock.GetPathCount(testutil.PullRequestPath(5)))
	assert.Equal(t, first, second)
	assert.True(t, second.HasRequestedReviewer("alice"))
	assert.Equal(t, "3", h.Get("X-RateLimit-Remaining"), "rate headers come from the 304 answer")
}

func TestIntegration_CacheIsolatedPerToken(t *testing.T) {
	redisClient := setupRedisContainer(t)

	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.ServeConditionalPullRequest(6, `"pr6"`)

	manager := cache.NewManager(redisClient)
	newClient := func(token string) *Client {
		cfg := DefaultConfig(token)
		cfg.BaseURL = mock.URL()
		cfg.Cache = manager
		c, err := New(cfg)
		require.NoError(t, err)
		return c
	}

	ctx := context.Background()
	var item Item
	_, err := newClient("token-a").GetJSON(ctx, mock.PullRequestURL(6), &item)
	require.NoError(t, err)
	_, err = newClient("token-b").GetJSON(ctx, mock.PullRequestURL(6), &item)
	require.NoError(t, err)

	assert.Equal(t, 0, mock.GetConditionalCount(), "a different token must not reuse the entry")
}
