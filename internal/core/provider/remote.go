package provider

import (
	"context"

	"lunaalba-client/internal/core/api"
	"lunaalba-client/internal/core/localauth"
	"lunaalba-client/internal/shared/logs"
)

// RemoteAuthority speaks to the real backend through the dispatcher and
// commits issued tokens into the dispatcher's session.
type RemoteAuthority struct {
	client *api.Client
}

func NewRemoteAuthority(client *api.Client) *RemoteAuthority {
	return &RemoteAuthority{client: client}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	localauth.Profile
}

func (r *RemoteAuthority) Authenticate(ctx context.Context, email, password string) api.Outcome {
	o := r.client.Post(ctx, "/auth/login", loginRequest{Email: email, Password: password})
	r.commitTokens(ctx, o)
	return o
}

func (r *RemoteAuthority) CreateAccount(ctx context.Context, email, password string, profile localauth.Profile) api.Outcome {
	o := r.client.Post(ctx, "/auth/signup", signupRequest{Email: email, Password: password, Profile: profile})
	r.commitTokens(ctx, o)
	return o
}

func (r *RemoteAuthority) CurrentUser(ctx context.Context) api.Outcome {
	return r.client.Get(ctx, "/auth/me")
}

// Logout tells the backend, then drops local session state regardless of the
// backend's answer.
func (r *RemoteAuthority) Logout(ctx context.Context) api.Outcome {
	o := r.client.Post(ctx, "/auth/logout", struct{}{})
	r.client.Session().Clear(ctx)
	return o
}

// commitTokens stores tokens from a successful auth response: access token in
// memory, refresh token persisted.
func (r *RemoteAuthority) commitTokens(ctx context.Context, o api.Outcome) {
	if !o.OK() {
		return
	}
	tokens, ok := unwrapTokens(o)
	if !ok {
		logs.Warn("auth response missing token payload", "status", o.Status)
		return
	}
	sess := r.client.Session()
	sess.SetAccessToken(tokens.AccessToken, tokens.ExpiresIn)
	if tokens.RefreshToken != "" {
		sess.SetRefreshToken(ctx, tokens.RefreshToken)
	}
}

var _ Authority = (*RemoteAuthority)(nil)
