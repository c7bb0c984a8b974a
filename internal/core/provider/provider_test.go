package provider_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lunaalba-client/internal/core/api"
	"lunaalba-client/internal/core/localauth"
	"lunaalba-client/internal/core/provider"
	"lunaalba-client/internal/core/ratelimit"
	"lunaalba-client/internal/core/session"
	"lunaalba-client/internal/core/store"
)

type authPayload struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

func newLocalAuthority(st store.Store) *provider.LocalAuthority {
	auth := localauth.New(st, "test-secret", localauth.WithSessionTTL(time.Hour))
	return provider.NewLocalAuthority(auth, st)
}

func newRemoteAuthority(baseURL string, st store.Store) *provider.RemoteAuthority {
	client := api.New(baseURL, session.New(st), ratelimit.New(), api.WithTimeout(2*time.Second))
	return provider.NewRemoteAuthority(client)
}

func TestLocalAuthorityOutcomeShapes(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	local := newLocalAuthority(st)

	o := local.CreateAccount(ctx, "kim@example.com", "s3cret!", localauth.Profile{Name: "Kim"})
	require.True(t, o.OK())

	var payload authPayload
	require.NoError(t, o.Decode(&payload))
	require.Equal(t, "kim@example.com", payload.User.Email)
	require.NotEmpty(t, payload.AccessToken, "account creation also signs the user in")
	require.Equal(t, int(time.Hour.Seconds()), payload.ExpiresIn)

	o = local.CreateAccount(ctx, "kim@example.com", "other", localauth.Profile{})
	require.Equal(t, http.StatusConflict, o.Status)
	require.Equal(t, localauth.ErrDuplicateAccount.Error(), o.Err)

	o = local.Authenticate(ctx, "kim@example.com", "wrong")
	require.Equal(t, http.StatusUnauthorized, o.Status)
	require.Equal(t, localauth.ErrInvalidCredentials.Error(), o.Err)

	o = local.Authenticate(ctx, "kim@example.com", "s3cret!")
	require.True(t, o.OK())
}

func TestLocalAuthorityCurrentUserAndLogout(t *testing.T) {
	ctx := context.Background()
	local := newLocalAuthority(store.NewMemoryStore())

	o := local.CurrentUser(ctx)
	require.Equal(t, http.StatusUnauthorized, o.Status)

	require.True(t, local.CreateAccount(ctx, "kim@example.com", "s3cret!", localauth.Profile{}).OK())

	o = local.CurrentUser(ctx)
	require.True(t, o.OK())
	var user struct {
		Email string `json:"email"`
	}
	require.NoError(t, o.Decode(&user))
	require.Equal(t, "kim@example.com", user.Email)

	require.True(t, local.Logout(ctx).OK())
	require.Equal(t, http.StatusUnauthorized, local.CurrentUser(ctx).Status)
}

func TestSelectorStartsLocalWithoutBackend(t *testing.T) {
	st := store.NewMemoryStore()
	s := provider.NewSelector(newRemoteAuthority("", st), newLocalAuthority(st), false)

	require.True(t, s.UsingLocal())
	o := s.CreateAccount(context.Background(), "kim@example.com", "s3cret!", localauth.Profile{})
	require.True(t, o.OK())
}

func TestSelectorFallsBackWhenBackendUnreachable(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	st := store.NewMemoryStore()
	s := provider.NewSelector(newRemoteAuthority(srv.URL, st), newLocalAuthority(st), true)
	require.False(t, s.UsingLocal())

	// The call that discovers the outage is retried locally, so the caller
	// still gets a usable outcome.
	o := s.CreateAccount(ctx, "kim@example.com", "s3cret!", localauth.Profile{})
	require.True(t, o.OK())
	require.True(t, s.UsingLocal())

	// The switch holds for the rest of the session.
	o = s.Authenticate(ctx, "kim@example.com", "s3cret!")
	require.True(t, o.OK())
}

func TestSelectorStaysRemoteOnHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid email or password"}`))
	}))
	defer srv.Close()

	st := store.NewMemoryStore()
	s := provider.NewSelector(newRemoteAuthority(srv.URL, st), newLocalAuthority(st), true)

	// A real HTTP error is a backend answer, not an outage.
	o := s.Authenticate(context.Background(), "kim@example.com", "wrong")
	require.Equal(t, http.StatusUnauthorized, o.Status)
	require.False(t, s.UsingLocal())
}

func TestForceLocalSwitchesImmediately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("remote must not be called after ForceLocal")
	}))
	defer srv.Close()

	st := store.NewMemoryStore()
	s := provider.NewSelector(newRemoteAuthority(srv.URL, st), newLocalAuthority(st), true)

	s.ForceLocal("probe failed")
	require.True(t, s.UsingLocal())
	o := s.CreateAccount(context.Background(), "kim@example.com", "s3cret!", localauth.Profile{})
	require.True(t, o.OK())
}

func TestRemoteAuthorityCommitsIssuedTokens(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"user":{"id":"u1","email":"kim@example.com"},"accessToken":"issued-token","expiresIn":3600,"refreshToken":"refresh-1"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	st := store.NewMemoryStore()
	sess := session.New(st)
	client := api.New(srv.URL, sess, ratelimit.New())
	remote := provider.NewRemoteAuthority(client)

	o := remote.Authenticate(ctx, "kim@example.com", "s3cret!")
	require.True(t, o.OK())
	require.Equal(t, "issued-token", sess.AccessToken())
	require.False(t, sess.IsExpired())
	require.Equal(t, "refresh-1", sess.RefreshToken(ctx))
}
