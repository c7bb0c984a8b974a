package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lunaalba-client/internal/core/session"
	"lunaalba-client/internal/core/store"
)

// brokenStore fails every operation, to verify persistence failures degrade
// instead of propagating.
type brokenStore struct{}

func (brokenStore) Get(ctx context.Context, key string) (string, error) {
	return "", errors.New("disk gone")
}
func (brokenStore) Set(ctx context.Context, key, value string) error { return errors.New("disk gone") }
func (brokenStore) Delete(ctx context.Context, key string) error     { return errors.New("disk gone") }

func TestAccessTokenExpiry(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := session.New(store.NewMemoryStore(), session.WithClock(func() time.Time { return now }))

	require.True(t, s.IsExpired(), "a session with no token is expired")

	s.SetAccessToken("tok", 3600)
	require.False(t, s.IsExpired())
	require.Equal(t, "tok", s.AccessToken())

	// Just inside the safety margin.
	now = now.Add(3600*time.Second - session.ExpiryMargin - time.Second)
	require.False(t, s.IsExpired())

	// At the margin boundary the token counts as expired.
	now = now.Add(time.Second)
	require.True(t, s.IsExpired())
}

func TestShortLivedTokenIsImmediatelyExpired(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := session.New(store.NewMemoryStore(), session.WithClock(func() time.Time { return now }))

	// A token whose lifetime fits inside the margin is never usable.
	s.SetAccessToken("tok", 30)
	require.True(t, s.IsExpired())
}

func TestRefreshTokenPersistence(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	s := session.New(st)

	require.Empty(t, s.RefreshToken(ctx))

	s.SetRefreshToken(ctx, "refresh-1")
	require.Equal(t, "refresh-1", s.RefreshToken(ctx))

	// Rotation replaces, never appends.
	s.SetRefreshToken(ctx, "refresh-2")
	require.Equal(t, "refresh-2", s.RefreshToken(ctx))

	// A second session over the same store sees the persisted token.
	other := session.New(st)
	require.Equal(t, "refresh-2", other.RefreshToken(ctx))
}

func TestClearDropsBothTokens(t *testing.T) {
	ctx := context.Background()
	s := session.New(store.NewMemoryStore())

	s.SetAccessToken("tok", 3600)
	s.SetRefreshToken(ctx, "refresh-1")

	s.Clear(ctx)
	require.True(t, s.IsExpired())
	require.Empty(t, s.AccessToken())
	require.Empty(t, s.RefreshToken(ctx))
}

func TestFailingStoreDegradesQuietly(t *testing.T) {
	ctx := context.Background()
	s := session.New(brokenStore{})

	// None of these may panic or surface an error.
	s.SetRefreshToken(ctx, "refresh-1")
	require.Empty(t, s.RefreshToken(ctx))
	s.SetAccessToken("tok", 3600)
	s.PersistAccessToken(ctx)
	s.Clear(ctx)
}

func TestPersistAndResumeAccessToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	st := store.NewMemoryStore()

	s := session.New(st, session.WithClock(clock))
	s.SetAccessToken("tok", 3600)
	s.PersistAccessToken(ctx)

	resumed := session.New(st, session.WithClock(clock))
	require.True(t, resumed.LoadPersistedToken(ctx))
	require.Equal(t, "tok", resumed.AccessToken())
	require.False(t, resumed.IsExpired())

	// A persisted token inside the margin is not resumed.
	now = now.Add(3600 * time.Second)
	stale := session.New(st, session.WithClock(clock))
	require.False(t, stale.LoadPersistedToken(ctx))
	require.True(t, stale.IsExpired())
}

func TestLoadPersistedTokenWithNothingStored(t *testing.T) {
	s := session.New(store.NewMemoryStore())
	require.False(t, s.LoadPersistedToken(context.Background()))
}
