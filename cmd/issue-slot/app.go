package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/gh-issue-slot/pkg/cache"
	"github.com/Sternrassler/gh-issue-slot/pkg/config"
	"github.com/Sternrassler/gh-issue-slot/pkg/github"
	"github.com/Sternrassler/gh-issue-slot/pkg/logging"
	"github.com/Sternrassler/gh-issue-slot/pkg/pipeline"
	"github.com/Sternrassler/gh-issue-slot/pkg/ratelimit"
	"github.com/Sternrassler/gh-issue-slot/pkg/report"
	"github.com/Sternrassler/gh-issue-slot/pkg/search"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// app holds the wiring shared by all commands.
type app struct {
	config *config.Config
	logger zerolog.Logger
	redis  *redis.Client
	runner *pipeline.Runner
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
	})

	ghCfg := github.DefaultConfig(cfg.GitHub.Token)
	ghCfg.BaseURL = cfg.GitHub.BaseURL
	ghCfg.UserAgent = cfg.GitHub.UserAgent
	ghCfg.RequestTimeout = cfg.GitHub.RequestTimeout()

	a := &app{config: cfg, logger: logger}

	if cfg.Redis.URL != "" {
		client, err := newRedisClient(cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info().Str("redis", client.Options().Addr).Msg("Response cache enabled")

		a.redis = client
		ghCfg.Cache = cache.NewManagerWithRetention(client, cfg.Redis.Retention())
	}

	ghClient, err := github.New(ghCfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create github client: %w", err)
	}
	if !ghClient.Authenticated() {
		logger.Warn().Msg("No GITHUB_TOKEN set - using the unauthenticated rate limit")
	}

	limiter := ratelimit.NewLimiter(logging.NewLogger("ratelimit"),
		ratelimit.WithReporter(report.Log{Logger: logger}))
	a.runner = pipeline.NewRunner(ghClient, limiter)

	return a, nil
}

// Close releases the Redis connection.
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
}

// newRedisClient accepts a redis:// URL or a plain host:port.
func newRedisClient(raw string) (*redis.Client, error) {
	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: raw}), nil
}

// request is one pick as typed by a user.
type request struct {
	Strategy string
	Count    int
	Noun     string
	Caller   string
}

// invocation applies the input checks and the command preset.
func (a *app) invocation(ctx context.Context, req request, rep report.Reporter) (pipeline.Invocation, error) {
	strategy, err := pipeline.ParseStrategy(req.Strategy)
	if err != nil {
		return pipeline.Invocation{}, err
	}

	inv := pipeline.Invocation{
		Strategy: strategy,
		Count:    pipeline.CheckCount(ctx, req.Count, rep),
	}

	kind := search.KindPullRequest
	if strategy == pipeline.StrategyReview {
		inv.Identity = pipeline.ResolveIdentity(ctx, req.Noun, req.Caller, rep)
	} else {
		kind = pipeline.ParseKind(ctx, req.Noun, rep)
	}

	inv.Query, err = a.config.Query(string(strategy), kind)
	if err != nil {
		return pipeline.Invocation{}, err
	}
	return inv, nil
}
