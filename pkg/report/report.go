// Package report carries user-visible diagnostics out of the fetch pipeline.
//
// Pipeline stages never fail loudly: a timeout, a rate limit give-up or a
// corrected input is turned into a Notice and handed to the Reporter the
// caller injected, while the stage degrades to fewer results.
package report

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Reporter receives user-visible diagnostics.
type Reporter interface {
	Report(ctx context.Context, title, description string)
}

// Notice is a single reported diagnostic.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Nop discards every notice. It is the default Reporter.
var Nop Reporter = nopReporter{}

type nopReporter struct{}

func (nopReporter) Report(context.Context, string, string) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Reporter) Reporter {
	if r == nil {
		return Nop
	}
	return r
}

// Func adapts a plain function to a Reporter.
type Func func(ctx context.Context, title, description string)

// Report calls f.
func (f Func) Report(ctx context.Context, title, description string) {
	f(ctx, title, description)
}

// Log writes notices to a zerolog logger at warn level.
type Log struct {
	Logger zerolog.Logger
}

// Report implements Reporter.
func (l Log) Report(_ context.Context, title, description string) {
	l.Logger.Warn().
		Str("title", title).
		Str("description", description).
		Msg("Notice")
}

// Collector keeps every notice in order. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	notices []Notice
	next    Reporter
}

// NewCollector returns a Collector that also forwards to next when non-nil.
func NewCollector(next Reporter) *Collector {
	return &Collector{next: next}
}

// Report implements Reporter.
func (c *Collector) Report(ctx context.Context, title, description string) {
	c.mu.Lock()
	c.notices = append(c.notices, Notice{Title: title, Description: description})
	c.mu.Unlock()

	if c.next != nil {
		c.next.Report(ctx, title, description)
	}
}

// Notices returns a copy of the collected notices.
func (c *Collector) Notices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

// Len returns the number of collected notices.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.notices)
}
