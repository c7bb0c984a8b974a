package main

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/ulule/limiter/v3"
	lstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"

	"lunaalba-client/internal/shared/logs"
)

type MiddlewareConstructor func(http.Handler) http.Handler

// Chain composes multiple middleware constructors into one reusable wrapper.
func Chain(constructors ...MiddlewareConstructor) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		handler := h
		for i := len(constructors) - 1; i >= 0; i-- {
			handler = constructors[i](handler)
		}
		return handler
	}
}

// Group lets you register many routes with a shared middleware chain.
type Group struct {
	mux  *http.ServeMux
	wrap func(http.Handler) http.Handler
}

func NewGroup(mux *http.ServeMux, constructors ...MiddlewareConstructor) *Group {
	return &Group{
		mux:  mux,
		wrap: Chain(constructors...),
	}
}

func (g *Group) Handle(pattern string, h http.Handler) {
	g.mux.Handle(pattern, g.wrap(h))
}

func (g *Group) HandleFunc(pattern string, fn func(http.ResponseWriter, *http.Request)) {
	g.Handle(pattern, http.HandlerFunc(fn))
}

// RateLimiterConstructor wraps routes with the limiter middleware, which
// stamps X-RateLimit-Limit/Remaining/Reset on every response — the headers
// the client's tracker consumes.
func RateLimiterConstructor(store limiter.Store, rateLimit limiter.Rate) MiddlewareConstructor {
	return func(next http.Handler) http.Handler {
		l := limiter.New(store, rateLimit, limiter.WithTrustForwardHeader(true))
		mw := lstdlib.NewMiddleware(l)
		inner := mw.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			inner.ServeHTTP(sr, r)
			if sr.status == http.StatusTooManyRequests {
				logs.Warn("request rate-limited", "method", r.Method, "path", r.URL.Path,
					"ip", r.RemoteAddr, "remaining", sr.Header().Get("X-RateLimit-Remaining"))
			}
		})
	}
}

// CSRFConstructor enforces the X-Requested-With marker on mutating requests
// and rotates the CSRF token on every response.
func CSRFConstructor() MiddlewareConstructor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Header.Get("X-Requested-With") == "" {
				logs.Warn("request missing CSRF marker", "method", r.Method, "path", r.URL.Path)
				http.Error(w, `{"message":"missing request marker"}`, http.StatusForbidden)
				return
			}
			w.Header().Set("X-CSRF-Token", newCSRFToken())
			next.ServeHTTP(w, r)
		})
	}
}

func newCSRFToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
