// Package ratelimit implements GitHub primary rate limit handling.
// It reads the X-RateLimit-Remaining and X-RateLimit-Reset headers of every
// response and decides whether the caller must pause before its next request.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Response headers carrying the rate limit state.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Thresholds for rate limit decisions.
const (
	// ThrottleAt is the remaining count that triggers a wait. GitHub answers
	// the request that brings the quota to zero, so waiting on the last one
	// keeps the next request inside the new window.
	ThrottleAt = 1

	// SafetyMargin is added to the time until reset.
	SafetyMargin = 1 * time.Second

	// MaxWait is the longest suspension tolerated. Longer waits give up.
	MaxWait = 61 * time.Second
)

// Snapshot is the rate limit state reported by a single response.
// It is recomputed for every response and never stored.
type Snapshot struct {
	// Remaining is the number of requests left in the current window.
	Remaining int

	// Reset is when the window resets (from epoch seconds).
	Reset time.Time
}

// FromHeaders parses a Snapshot from response headers.
// ok is false when the response carries no rate limit headers at all.
func FromHeaders(h http.Header) (s Snapshot, ok bool, err error) {
	remainStr := strings.TrimSpace(h.Get(HeaderRemaining))
	if remainStr == "" {
		return Snapshot{}, false, nil
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	resetStr := strings.TrimSpace(h.Get(HeaderReset))
	if resetStr == "" {
		return Snapshot{}, false, fmt.Errorf("%s header missing", HeaderReset)
	}

	epoch, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("parse %s header: %w", HeaderReset, err)
	}

	return Snapshot{Remaining: remaining, Reset: time.Unix(epoch, 0)}, true, nil
}

// Plan decides how long to wait after the response that produced s.
// giveUp is true when the wait would exceed MaxWait; the caller should
// stop instead of sleeping. A zero wait means continue immediately.
func Plan(s Snapshot, now time.Time) (wait time.Duration, giveUp bool) {
	if s.Remaining != ThrottleAt {
		return 0, false
	}

	wait = s.Reset.Sub(now) + SafetyMargin
	if wait > MaxWait {
		return wait, true
	}
	if wait <= 0 {
		return 0, false
	}
	return wait, false
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s Snapshot) TimeUntilReset(now time.Time) time.Duration {
	d := s.Reset.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
