// Package ratelimit tracks per-endpoint rate-limit windows derived from
// backend response headers and gates outgoing requests before they are sent.
// The server stays authoritative; local blocking only avoids hammering an
// endpoint already known to be limited.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"lunaalba-client/internal/shared/logs"
)

// Optimistic default when a response carries no remaining-count header;
// missing headers must never block traffic.
const defaultRemaining = 100

const (
	headerRemaining = "X-RateLimit-Remaining"
	headerReset     = "X-RateLimit-Reset"
)

// Window is one endpoint's sliding rate-limit state.
type Window struct {
	Remaining int
	ResetAt   time.Time
}

// Tracker holds one window per endpoint path plus a steady pacer shared by
// every call the dispatcher issues. Windows are created lazily on the first
// response carrying rate-limit headers and evicted lazily once reset passes.
type Tracker struct {
	mu      sync.Mutex
	windows map[string]Window
	pacer   *rate.Limiter
	now     func() time.Time
}

type Option func(*Tracker)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithPacing configures the steady client-side request rate.
func WithPacing(rps float64, burst int) Option {
	return func(t *Tracker) { t.pacer = rate.NewLimiter(rate.Limit(rps), burst) }
}

func New(opts ...Option) *Tracker {
	t := &Tracker{
		windows: make(map[string]Window),
		pacer:   rate.NewLimiter(rate.Limit(20), 40),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordResponse updates the endpoint's window from response headers.
// The reset header is a unix timestamp in seconds.
func (t *Tracker) RecordResponse(endpoint string, headers http.Header) {
	remaining := defaultRemaining
	if v := headers.Get(headerRemaining); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			remaining = n
		}
	}
	var resetAt time.Time
	if v := headers.Get(headerReset); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs > 0 {
			resetAt = time.Unix(secs, 0)
		}
	}

	t.mu.Lock()
	t.windows[endpoint] = Window{Remaining: remaining, ResetAt: resetAt}
	t.mu.Unlock()

	if remaining <= 0 {
		logs.Warn("endpoint rate limit exhausted", "endpoint", endpoint, "reset_at", resetAt)
	}
}

// IsBlocked reports whether the endpoint has a live window with no calls
// remaining. A window whose reset time has passed is evicted as a side effect;
// there is no background timer.
func (t *Tracker) IsBlocked(endpoint string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[endpoint]
	if !ok {
		return false
	}
	if !t.now().Before(w.ResetAt) {
		delete(t.windows, endpoint)
		return false
	}
	return w.Remaining <= 0
}

// RetryAfter returns how long until the endpoint's window resets, or zero
// when the endpoint is not blocked.
func (t *Tracker) RetryAfter(endpoint string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[endpoint]
	if !ok || w.Remaining > 0 {
		return 0
	}
	d := w.ResetAt.Sub(t.now())
	if d < 0 {
		return 0
	}
	return d
}

// Wait blocks on the steady pacer until the next request may be sent.
func (t *Tracker) Wait(ctx context.Context) error {
	return t.pacer.Wait(ctx)
}
