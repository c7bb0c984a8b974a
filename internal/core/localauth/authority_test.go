package localauth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lunaalba-client/internal/core/localauth"
	"lunaalba-client/internal/core/store"
)

const testSecret = "test-secret"

func newAuthority(st store.Store) *localauth.Authority {
	return localauth.New(st, testSecret, localauth.WithSessionTTL(time.Hour))
}

func TestCreateAccountAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	a := newAuthority(store.NewMemoryStore())

	profile := localauth.Profile{Name: "Kim", Phone: "010-1234-5678", Type: "personal"}
	acct, err := a.CreateAccount(ctx, "kim@example.com", "s3cret!", profile)
	require.NoError(t, err)
	require.NotEmpty(t, acct.ID)
	require.Equal(t, "kim@example.com", acct.Email)
	require.NotEqual(t, "s3cret!", acct.PasswordHash, "the raw password is never stored")

	got, token, err := a.Authenticate(ctx, "kim@example.com", "s3cret!")
	require.NoError(t, err)
	require.Equal(t, acct.ID, got.ID)
	require.NotEmpty(t, token.Token)
	require.Equal(t, int(time.Hour.Seconds()), token.ExpiresIn)
}

func TestDuplicateEmailIsRejected(t *testing.T) {
	ctx := context.Background()
	a := newAuthority(store.NewMemoryStore())

	_, err := a.CreateAccount(ctx, "kim@example.com", "pw-one", localauth.Profile{})
	require.NoError(t, err)

	_, err = a.CreateAccount(ctx, "kim@example.com", "pw-two", localauth.Profile{})
	require.ErrorIs(t, err, localauth.ErrDuplicateAccount)
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	a := newAuthority(store.NewMemoryStore())

	_, err := a.CreateAccount(ctx, "kim@example.com", "s3cret!", localauth.Profile{})
	require.NoError(t, err)

	_, _, err = a.Authenticate(ctx, "kim@example.com", "wrong")
	require.ErrorIs(t, err, localauth.ErrInvalidCredentials)

	// An unknown account fails the same way as a bad password.
	_, _, err = a.Authenticate(ctx, "nobody@example.com", "s3cret!")
	require.ErrorIs(t, err, localauth.ErrInvalidCredentials)
}

func TestDirectorySurvivesRestart(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	first := newAuthority(st)
	_, err := first.CreateAccount(ctx, "kim@example.com", "s3cret!", localauth.Profile{})
	require.NoError(t, err)

	second := newAuthority(st)
	_, _, err = second.Authenticate(ctx, "kim@example.com", "s3cret!")
	require.NoError(t, err)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := newAuthority(store.NewMemoryStore())

	acct, err := a.CreateAccount(ctx, "kim@example.com", "s3cret!", localauth.Profile{Type: "business"})
	require.NoError(t, err)
	_, token, err := a.Authenticate(ctx, "kim@example.com", "s3cret!")
	require.NoError(t, err)

	claims, err := a.ParseSessionToken(token.Token)
	require.NoError(t, err)
	require.Equal(t, "kim@example.com", claims.Email)
	require.Equal(t, "business", claims.Type)
	require.Equal(t, acct.ID, claims.Subject)
}

func TestSessionTokenFromAnotherSecretIsRejected(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	a := newAuthority(st)
	_, err := a.CreateAccount(ctx, "kim@example.com", "s3cret!", localauth.Profile{})
	require.NoError(t, err)
	_, token, err := a.Authenticate(ctx, "kim@example.com", "s3cret!")
	require.NoError(t, err)

	other := localauth.New(st, "different-secret")
	_, err = other.ParseSessionToken(token.Token)
	require.Error(t, err)
}

func TestAccountLookupAndClear(t *testing.T) {
	ctx := context.Background()
	a := newAuthority(store.NewMemoryStore())

	_, err := a.CreateAccount(ctx, "kim@example.com", "s3cret!", localauth.Profile{})
	require.NoError(t, err)

	acct, err := a.Account(ctx, "kim@example.com")
	require.NoError(t, err)
	require.Equal(t, "kim@example.com", acct.Email)

	require.NoError(t, a.ClearDirectory(ctx))
	_, err = a.Account(ctx, "kim@example.com")
	require.ErrorIs(t, err, localauth.ErrInvalidCredentials)
}
