// Package session holds the token state for one logical backend session:
// the access token in memory, its expiry, and the refresh token persisted
// through the durable store.
package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"lunaalba-client/internal/core/store"
	"lunaalba-client/internal/shared/logs"
)

// ExpiryMargin is subtracted from the literal expiry so a token is treated
// as expired before requests already in flight can race past it.
const ExpiryMargin = 30 * time.Second

const (
	refreshTokenKey = "lunaalba_refresh_token"
	accessTokenKey  = "lunaalba_access_token"
	tokenExpiryKey  = "lunaalba_token_expiry"
)

// Session is owned by the dispatcher instance that created it; one logical
// session per application instance. All methods are safe for concurrent use.
type Session struct {
	mu          sync.Mutex
	store       store.Store
	now         func() time.Time
	accessToken string
	expiresAt   time.Time
}

type Option func(*Session)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func New(st store.Store, opts ...Option) *Session {
	s := &Session{store: st, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetAccessToken stores the token and computes its expiry instant.
// Any string is accepted; the server is the authority on token shape.
func (s *Session) SetAccessToken(token string, expiresInSeconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
	s.expiresAt = s.now().Add(time.Duration(expiresInSeconds) * time.Second)
}

// AccessToken returns the held token, which may be empty.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// IsExpired reports whether no token is held or the token is within the
// safety margin of its expiry.
func (s *Session) IsExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiredLocked()
}

func (s *Session) expiredLocked() bool {
	if s.accessToken == "" {
		return true
	}
	return !s.now().Before(s.expiresAt.Add(-ExpiryMargin))
}

// SetRefreshToken persists the refresh token. A failing store degrades to
// "must log in again", so the error is logged and swallowed rather than
// surfaced to the caller.
func (s *Session) SetRefreshToken(ctx context.Context, token string) {
	if err := s.store.Set(ctx, refreshTokenKey, token); err != nil {
		logs.Warn("failed to persist refresh token", "error", err)
	}
}

// RefreshToken reads the persisted refresh token, returning "" when none is held.
func (s *Session) RefreshToken(ctx context.Context) string {
	v, err := s.store.Get(ctx, refreshTokenKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logs.Warn("failed to read refresh token", "error", err)
		}
		return ""
	}
	return v
}

// Clear drops both tokens. Used on logout or an unrecoverable 401.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	s.accessToken = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	if err := s.store.Delete(ctx, refreshTokenKey); err != nil {
		logs.Warn("failed to clear refresh token", "error", err)
	}
	if err := s.store.Delete(ctx, accessTokenKey); err != nil {
		logs.Warn("failed to clear persisted access token", "error", err)
	}
	if err := s.store.Delete(ctx, tokenExpiryKey); err != nil {
		logs.Warn("failed to clear persisted token expiry", "error", err)
	}
}

// PersistAccessToken writes the current access token and expiry to the store
// so a restarted process can resume the session. Off by default; callers opt
// in because the access token is otherwise memory-only.
func (s *Session) PersistAccessToken(ctx context.Context) {
	s.mu.Lock()
	token := s.accessToken
	expiry := s.expiresAt
	s.mu.Unlock()

	if token == "" {
		return
	}
	if err := s.store.Set(ctx, accessTokenKey, token); err != nil {
		logs.Warn("failed to persist access token", "error", err)
		return
	}
	if err := s.store.Set(ctx, tokenExpiryKey, strconv.FormatInt(expiry.UnixMilli(), 10)); err != nil {
		logs.Warn("failed to persist token expiry", "error", err)
	}
}

// LoadPersistedToken restores a previously persisted access token if it is
// still outside the expiry margin. Returns true when a usable token was loaded.
func (s *Session) LoadPersistedToken(ctx context.Context) bool {
	token, err := s.store.Get(ctx, accessTokenKey)
	if err != nil {
		return false
	}
	expiryStr, err := s.store.Get(ctx, tokenExpiryKey)
	if err != nil {
		return false
	}
	expiryMilli, err := strconv.ParseInt(expiryStr, 10, 64)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	expiry := time.UnixMilli(expiryMilli)
	if !s.now().Before(expiry.Add(-ExpiryMargin)) {
		return false
	}
	s.accessToken = token
	s.expiresAt = expiry
	return true
}
