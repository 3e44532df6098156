package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/Sternrassler/gh-issue-slot/pkg/github"
	"github.com/Sternrassler/gh-issue-slot/pkg/ratelimit"
	"github.com/Sternrassler/gh-issue-slot/pkg/report"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1_700_000_000, 0)

// fakePages serves total items in pages; items past len are never produced.
type fakePages struct {
	total    int
	reported int
	header   func(page int) http.Header
	failOn   int
	err      error
	calls    []int
}

func (f *fakePages) FetchPage(_ context.Context, pageNum, perPage int) (*Page, error) {
	f.calls = append(f.calls, pageNum)
	if f.failOn == pageNum {
		return nil, f.err
	}

	start := (pageNum - 1) * perPage
	end := min(start+perPage, f.total)
	var items []github.Item
	for n := start + 1; n <= end; n++ {
		items = append(items, github.Item{Number: n, Title: fmt.Sprintf("Item %d", n)})
	}

	reported := f.reported
	if reported == 0 {
		reported = f.total
	}

	var h http.Header
	if f.header != nil {
		h = f.header(pageNum)
	}
	return &Page{TotalCount: reported, Items: items, Header: h}, nil
}

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func newFetcher(pages PageFetcher, perPage int, sleeper *recordingSleeper) *Fetcher {
	limiter := ratelimit.NewLimiter(zerolog.Nop(),
		ratelimit.WithClock(func() time.Time { return epoch }),
		ratelimit.WithSleeper(sleeper.sleep),
	)
	return NewFetcher(pages, limiter, Config{PerPage: perPage})
}

func numbers(f *Fetcher, ctx context.Context, rep report.Reporter) []int {
	var out []int
	for item := range f.Items(ctx, rep) {
		out = append(out, item.Number)
	}
	return out
}

func rateHeader(remaining int, reset time.Time) http.Header {
	h := http.Header{}
	h.Set(ratelimit.HeaderRemaining, strconv.Itoa(remaining))
	h.Set(ratelimit.HeaderReset, strconv.FormatInt(reset.Unix(), 10))
	return h
}

func TestNewFetcher_Defaults(t *testing.T) {
	f := NewFetcher(&fakePages{}, nil, Config{PerPage: 500})

	assert.Equal(t, MaxPerPage, f.config.PerPage)
	assert.Equal(t, MaxSearchResults, f.config.MaxResults)
	assert.Equal(t, Config{PerPage: 100, MaxResults: 1000}, DefaultConfig())
}

func TestItems_YieldsExactlyTotalCount(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		perPage   int
		wantPages []int
	}{
		{"single partial page", 7, 10, []int{1}},
		{"exact pages", 20, 10, []int{1, 2}},
		{"several pages", 25, 10, []int{1, 2, 3}},
		{"nothing found", 0, 10, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := &fakePages{total: tt.total}
			got := numbers(newFetcher(pages, tt.perPage, &recordingSleeper{}), context.Background(), nil)

			assert.Len(t, got, tt.total)
			for i, n := range got {
				assert.Equal(t, i+1, n, "order preserved")
			}
			assert.Equal(t, tt.wantPages, pages.calls)
		})
	}
}

func TestItems_NeverBeyondTotalCount(t *testing.T) {
	// API claims fewer results than the page holds
	pages := &fakePages{total: 10, reported: 4}

	got := numbers(newFetcher(pages, 10, &recordingSleeper{}), context.Background(), nil)

	assert.Equal(t, []int{1, 2, 3, 4}, got)
	assert.Equal(t, []int{1}, pages.calls)
}

func TestItems_StopsOnShortPage(t *testing.T) {
	// API claims more results than it serves
	pages := &fakePages{total: 15, reported: 40}

	got := numbers(newFetcher(pages, 10, &recordingSleeper{}), context.Background(), nil)

	assert.Len(t, got, 15)
	assert.Equal(t, []int{1, 2}, pages.calls)
}

func TestItems_StopsAtResultCap(t *testing.T) {
	pages := &fakePages{total: 50}
	limiter := ratelimit.NewLimiter(zerolog.Nop())
	f := NewFetcher(pages, limiter, Config{PerPage: 10, MaxResults: 25})

	got := numbers(f, context.Background(), nil)

	assert.Len(t, got, 25)
	assert.Equal(t, []int{1, 2, 3}, pages.calls)
}

func TestItems_ConsumerBreakStopsRequests(t *testing.T) {
	pages := &fakePages{total: 100}
	f := newFetcher(pages, 10, &recordingSleeper{})

	var got []int
	for item := range f.Items(context.Background(), nil) {
		got = append(got, item.Number)
		if len(got) == 12 {
			break
		}
	}

	assert.Len(t, got, 12)
	assert.Equal(t, []int{1, 2}, pages.calls)
}

func TestItems_WaitsBetweenPages(t *testing.T) {
	pages := &fakePages{
		total: 25,
		header: func(page int) http.Header {
			if page == 1 {
				return rateHeader(1, epoch.Add(5*time.Second))
			}
			return rateHeader(50, epoch.Add(time.Hour))
		},
	}
	sleeper := &recordingSleeper{}

	got := numbers(newFetcher(pages, 10, sleeper), context.Background(), nil)

	assert.Len(t, got, 25)
	assert.Equal(t, []time.Duration{6 * time.Second}, sleeper.waits)
}

func TestItems_NoWaitAfterLastPage(t *testing.T) {
	pages := &fakePages{
		total:  5,
		header: func(int) http.Header { return rateHeader(1, epoch.Add(5*time.Second)) },
	}
	sleeper := &recordingSleeper{}

	got := numbers(newFetcher(pages, 10, sleeper), context.Background(), nil)

	assert.Len(t, got, 5)
	assert.Empty(t, sleeper.waits)
}

func TestItems_NoGiveUpAfterLastPage(t *testing.T) {
	pages := &fakePages{
		total:  5,
		header: func(int) http.Header { return rateHeader(1, epoch.Add(10*time.Minute)) },
	}
	sleeper := &recordingSleeper{}
	rep := report.NewCollector(nil)

	got := numbers(newFetcher(pages, 10, sleeper), context.Background(), rep)

	assert.Len(t, got, 5)
	assert.Empty(t, sleeper.waits)
	assert.Zero(t, rep.Len(), "nothing is left to fetch, so an exhausted window is not reported")
}

func TestItems_GiveUpEndsSequence(t *testing.T) {
	pages := &fakePages{
		total:  30,
		header: func(int) http.Header { return rateHeader(1, epoch.Add(2*time.Minute)) },
	}
	sleeper := &recordingSleeper{}
	rep := report.NewCollector(nil)

	got := numbers(newFetcher(pages, 10, sleeper), context.Background(), rep)

	assert.Len(t, got, 10, "first page stays yielded")
	assert.Equal(t, []int{1}, pages.calls)
	assert.Empty(t, sleeper.waits)
	require.Equal(t, 1, rep.Len())
	assert.Equal(t, "API Request timed out", rep.Notices()[0].Title)
	assert.Equal(t, "Try again after 121 seconds", rep.Notices()[0].Description)
}

func TestItems_TimeoutReportedAndTruncates(t *testing.T) {
	pages := &fakePages{
		total:  30,
		failOn: 2,
		err:    fmt.Errorf("search page 2: %w", github.ErrTimeout),
	}
	rep := report.NewCollector(nil)

	got := numbers(newFetcher(pages, 10, &recordingSleeper{}), context.Background(), rep)

	assert.Len(t, got, 10)
	assert.Equal(t, []int{1, 2}, pages.calls)
	require.Equal(t, 1, rep.Len())
	assert.Equal(t, report.Notice{
		Title:       "API Request timed out",
		Description: "Please check https://www.githubstatus.com/",
	}, rep.Notices()[0])
}

func TestItems_FailureOnFirstPage(t *testing.T) {
	pages := &fakePages{
		total:  30,
		failOn: 1,
		err:    &github.APIError{StatusCode: 502, ErrorClass: github.ErrorClassServer},
	}
	rep := report.NewCollector(nil)

	got := numbers(newFetcher(pages, 10, &recordingSleeper{}), context.Background(), rep)

	assert.Empty(t, got)
	require.Equal(t, 1, rep.Len())
	assert.Equal(t, "API Request failed", rep.Notices()[0].Title)
}

func TestItems_CanceledByCallerIsNotReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pages := &fakePages{total: 30, failOn: 1, err: context.Canceled}
	rep := report.NewCollector(nil)

	got := numbers(newFetcher(pages, 10, &recordingSleeper{}), ctx, rep)

	assert.Empty(t, got)
	assert.Zero(t, rep.Len())
}

func TestItems_CanceledDuringWait(t *testing.T) {
	pages := &fakePages{
		total:  30,
		header: func(int) http.Header { return rateHeader(1, epoch.Add(10*time.Second)) },
	}
	limiter := ratelimit.NewLimiter(zerolog.Nop(),
		ratelimit.WithClock(func() time.Time { return epoch }),
		ratelimit.WithSleeper(func(context.Context, time.Duration) error { return context.Canceled }),
	)
	rep := report.NewCollector(nil)

	got := numbers(NewFetcher(pages, limiter, Config{PerPage: 10}), context.Background(), rep)

	assert.Len(t, got, 10)
	assert.Equal(t, []int{1}, pages.calls)
	assert.Zero(t, rep.Len())
}

func TestFail_ClassifiesErrors(t *testing.T) {
	f := newFetcher(&fakePages{}, 10, &recordingSleeper{})
	rep := report.NewCollector(nil)

	reason := f.fail(context.Background(), rep, 3, errors.New("connection reset"))

	assert.Equal(t, stopError, reason)
	assert.Equal(t, []report.Notice{{Title: "API Request failed", Description: "connection reset"}}, rep.Notices())
}
