// Package pagination walks paginated GitHub search results as a lazy sequence.
//
// GitHub search pages are numbered from 1 and carry a total_count. Pages are
// requested strictly one after another because every request spends the
// same rate limit budget; the limiter is consulted between pages.
//
// Example usage:
//
//	source := search.NewPageSource(client, query)
//	fetcher := pagination.NewFetcher(source, limiter, pagination.DefaultConfig())
//	for item := range fetcher.Items(ctx, reporter) {
//		// items arrive as soon as their page does
//	}
//
// The fetcher:
//   - Requests page 1, 2, ... with per_page=100 (the API maximum)
//   - Yields items as each page arrives, never more than total_count
//   - Stops on exhaustion, an empty or short page, or the 1000-result search cap
//   - Stops after reporting a failed request; items already yielded stay yielded
//   - Stops when the rate limiter gives up
//   - Stops without further requests when the consumer breaks out of the loop
package pagination
