package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/Sternrassler/gh-issue-slot/pkg/report"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleeper captures requested waits instead of sleeping.
type recordingSleeper struct {
	waits []time.Duration
	err   error
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return r.err
}

func newTestLimiter(s *recordingSleeper) *Limiter {
	return NewLimiter(zerolog.Nop(),
		WithClock(func() time.Time { return epoch }),
		WithSleeper(s.sleep),
	)
}

func resetIn(d time.Duration) string {
	return strconv.FormatInt(epoch.Add(d).Unix(), 10)
}

func TestLimiter_WaitsBeforeReset(t *testing.T) {
	s := &recordingSleeper{}
	l := newTestLimiter(s)
	rep := report.NewCollector(nil)

	err := l.Wait(context.Background(), headers("1", resetIn(5*time.Second)), rep)

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{6 * time.Second}, s.waits)
	assert.Zero(t, rep.Len())
}

func TestLimiter_GivesUpOnLongWait(t *testing.T) {
	s := &recordingSleeper{}
	l := newTestLimiter(s)
	rep := report.NewCollector(nil)

	err := l.Wait(context.Background(), headers("1", resetIn(120*time.Second)), rep)

	require.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Empty(t, s.waits, "must not sleep when giving up")
	require.Equal(t, 1, rep.Len())
	assert.Equal(t, "API Request timed out", rep.Notices()[0].Title)
	assert.Equal(t, "Try again after 121 seconds", rep.Notices()[0].Description)
}

func TestLimiter_NoWait(t *testing.T) {
	tests := []struct {
		name   string
		remain string
		reset  string
	}{
		{"healthy quota", "4000", resetIn(time.Hour)},
		{"no headers", "", ""},
		{"malformed headers", "x", "y"},
		{"reset in the past", "1", resetIn(-30 * time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &recordingSleeper{}
			l := newTestLimiter(s)

			err := l.Wait(context.Background(), headers(tt.remain, tt.reset), nil)

			require.NoError(t, err)
			assert.Empty(t, s.waits)
		})
	}
}

func TestLimiter_DefaultReporter(t *testing.T) {
	rep := report.NewCollector(nil)
	l := NewLimiter(zerolog.Nop(),
		WithClock(func() time.Time { return epoch }),
		WithReporter(rep),
	)

	err := l.Wait(context.Background(), headers("1", resetIn(10*time.Minute)), nil)

	require.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Equal(t, 1, rep.Len())
}

func TestLimiter_SleepInterrupted(t *testing.T) {
	s := &recordingSleeper{err: context.Canceled}
	l := newTestLimiter(s)

	err := l.Wait(context.Background(), headers("1", resetIn(2*time.Second)), nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrRateLimitExceeded))
}

func TestSleepContext(t *testing.T) {
	t.Run("completes", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, SleepContext(context.Background(), 20*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		err := SleepContext(ctx, time.Minute)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestSleepContext_DoesNotBlockOthers(t *testing.T) {
	done := make(chan struct{})
	go func() {
		_ = SleepContext(context.Background(), 200*time.Millisecond)
		close(done)
	}()

	other := make(chan struct{})
	go func() { close(other) }()

	select {
	case <-other:
	case <-done:
		t.Fatal("sleeping goroutine finished before an unrelated one ran")
	}
	<-done
}
