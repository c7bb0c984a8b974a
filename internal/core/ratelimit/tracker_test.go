package ratelimit_test

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lunaalba-client/internal/core/ratelimit"
)

func headersWith(remaining int, resetAt time.Time) http.Header {
	h := http.Header{}
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	return h
}

func TestUnknownEndpointIsNeverBlocked(t *testing.T) {
	tr := ratelimit.New()
	require.False(t, tr.IsBlocked("/jobs"))
	require.Zero(t, tr.RetryAfter("/jobs"))
}

func TestExhaustedWindowBlocksUntilReset(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tr := ratelimit.New(ratelimit.WithClock(func() time.Time { return now }))

	tr.RecordResponse("/jobs", headersWith(0, now.Add(30*time.Second)))
	require.True(t, tr.IsBlocked("/jobs"))
	require.Equal(t, 30*time.Second, tr.RetryAfter("/jobs"))

	// The window evicts lazily once reset passes; no timer involved.
	now = now.Add(31 * time.Second)
	require.False(t, tr.IsBlocked("/jobs"))
	require.False(t, tr.IsBlocked("/jobs"))
}

func TestRemainingCallsDoNotBlock(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tr := ratelimit.New(ratelimit.WithClock(func() time.Time { return now }))

	tr.RecordResponse("/jobs", headersWith(1, now.Add(30*time.Second)))
	require.False(t, tr.IsBlocked("/jobs"))
}

func TestMissingHeadersAreOptimistic(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tr := ratelimit.New(ratelimit.WithClock(func() time.Time { return now }))

	// No headers at all must never introduce blocking.
	tr.RecordResponse("/jobs", http.Header{})
	require.False(t, tr.IsBlocked("/jobs"))

	// A garbled remaining count falls back to the optimistic default too.
	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "not-a-number")
	h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(time.Minute).Unix(), 10))
	tr.RecordResponse("/jobs", h)
	require.False(t, tr.IsBlocked("/jobs"))
}

func TestWindowsArePerEndpoint(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tr := ratelimit.New(ratelimit.WithClock(func() time.Time { return now }))

	tr.RecordResponse("/jobs", headersWith(0, now.Add(time.Minute)))
	tr.RecordResponse("/profiles", headersWith(50, now.Add(time.Minute)))

	require.True(t, tr.IsBlocked("/jobs"))
	require.False(t, tr.IsBlocked("/profiles"))
}

func TestLaterResponseReplacesWindow(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tr := ratelimit.New(ratelimit.WithClock(func() time.Time { return now }))

	tr.RecordResponse("/jobs", headersWith(0, now.Add(time.Minute)))
	require.True(t, tr.IsBlocked("/jobs"))

	tr.RecordResponse("/jobs", headersWith(10, now.Add(time.Minute)))
	require.False(t, tr.IsBlocked("/jobs"))
}

func TestWaitHonorsContext(t *testing.T) {
	tr := ratelimit.New(ratelimit.WithPacing(0.001, 1))

	ctx := context.Background()
	require.NoError(t, tr.Wait(ctx), "the first call rides the burst allowance")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.Error(t, tr.Wait(cancelled))
}
