package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"lunaalba-client/internal/core/api"
	"lunaalba-client/internal/core/localauth"
	"lunaalba-client/internal/core/store"
	"lunaalba-client/internal/shared/logs"
)

const (
	currentUserKey  = "lunaalba_current_user"
	localSessionKey = "lunaalba_local_session"
)

// LocalAuthority adapts the fallback authority to the Authority interface,
// producing outcomes shaped exactly like the remote path's.
type LocalAuthority struct {
	auth  *localauth.Authority
	store store.Store
}

func NewLocalAuthority(auth *localauth.Authority, st store.Store) *LocalAuthority {
	return &LocalAuthority{auth: auth, store: st}
}

// userView is the account as exposed to callers; the password hash never
// leaves the directory.
type userView struct {
	ID        string            `json:"id"`
	Email     string            `json:"email"`
	CreatedAt time.Time         `json:"createdAt"`
	Profile   localauth.Profile `json:"profile"`
}

func viewOf(acct *localauth.Account) userView {
	return userView{ID: acct.ID, Email: acct.Email, CreatedAt: acct.CreatedAt, Profile: acct.Profile}
}

func (l *LocalAuthority) Authenticate(ctx context.Context, email, password string) api.Outcome {
	acct, token, err := l.auth.Authenticate(ctx, email, password)
	if err != nil {
		return l.failureOutcome(err)
	}
	return l.successOutcome(ctx, acct, token)
}

func (l *LocalAuthority) CreateAccount(ctx context.Context, email, password string, profile localauth.Profile) api.Outcome {
	acct, err := l.auth.CreateAccount(ctx, email, password, profile)
	if err != nil {
		return l.failureOutcome(err)
	}
	token, err := l.authTokenFor(ctx, acct, password)
	if err != nil {
		return l.failureOutcome(err)
	}
	return l.successOutcome(ctx, acct, token)
}

// authTokenFor re-authenticates the freshly created account so signup also
// yields a session, matching the remote backend's auto-login behavior.
func (l *LocalAuthority) authTokenFor(ctx context.Context, acct *localauth.Account, password string) (*localauth.SessionToken, error) {
	_, token, err := l.auth.Authenticate(ctx, acct.Email, password)
	return token, err
}

func (l *LocalAuthority) CurrentUser(ctx context.Context) api.Outcome {
	raw, err := l.store.Get(ctx, currentUserKey)
	if err != nil {
		return api.Outcome{Err: "not signed in", Status: http.StatusUnauthorized}
	}
	if _, err := l.store.Get(ctx, localSessionKey); err != nil {
		return api.Outcome{Err: "not signed in", Status: http.StatusUnauthorized}
	}
	return api.Outcome{Data: json.RawMessage(raw), Status: http.StatusOK}
}

func (l *LocalAuthority) Logout(ctx context.Context) api.Outcome {
	if err := l.store.Delete(ctx, currentUserKey); err != nil {
		logs.Warn("failed to clear current user", "error", err)
	}
	if err := l.store.Delete(ctx, localSessionKey); err != nil {
		logs.Warn("failed to clear local session", "error", err)
	}
	return api.Outcome{Status: http.StatusOK}
}

func (l *LocalAuthority) successOutcome(ctx context.Context, acct *localauth.Account, token *localauth.SessionToken) api.Outcome {
	view := viewOf(acct)

	userJSON, err := json.Marshal(view)
	if err != nil {
		return l.failureOutcome(err)
	}
	if err := l.store.Set(ctx, currentUserKey, string(userJSON)); err != nil {
		logs.Warn("failed to persist current user", "error", err)
	}
	if err := l.store.Set(ctx, localSessionKey, token.Token); err != nil {
		logs.Warn("failed to persist local session", "error", err)
	}

	payload, err := json.Marshal(tokenPayload{
		User:        userJSON,
		AccessToken: token.Token,
		ExpiresIn:   token.ExpiresIn,
	})
	if err != nil {
		return l.failureOutcome(err)
	}
	return api.Outcome{Data: payload, Status: http.StatusOK}
}

func (l *LocalAuthority) failureOutcome(err error) api.Outcome {
	switch {
	case errors.Is(err, localauth.ErrDuplicateAccount):
		return api.Outcome{Err: err.Error(), Status: http.StatusConflict}
	case errors.Is(err, localauth.ErrInvalidCredentials):
		return api.Outcome{Err: err.Error(), Status: http.StatusUnauthorized}
	default:
		logs.Error("local authority failure", "error", err)
		return api.Outcome{Err: "local auth store unavailable", Status: http.StatusInternalServerError}
	}
}

var _ Authority = (*LocalAuthority)(nil)
