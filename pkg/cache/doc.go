// Package cache keeps GitHub GET responses in Redis so that later requests
// for the same resource can be revalidated instead of refetched.
//
// GitHub does not count a 304 Not Modified answer to a conditional request
// against the primary rate limit. Storing the body together with its ETag and
// Last-Modified values lets the client send If-None-Match / If-Modified-Since
// on every request and serve the stored body when the server answers 304.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.KeyForRequest(req, token)
//	entry, err := manager.Get(ctx, key)
//	if err == nil && cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// # Retention
//
// Entries stay in Redis for the longer of their freshness lifetime
// (Cache-Control max-age, then Expires, then DefaultTTL) and the manager's
// retention. Stale entries are still useful: they are always revalidated,
// never served without asking the server.
//
// # Metrics
//
//   - gh_cache_hits_total - entries found for a request
//   - gh_cache_misses_total - no entry for a request
//   - gh_cache_revalidated_total - 304 answers served from the cache
//   - gh_cache_errors_total{operation} - Redis or encoding failures
package cache
