// Package provider gives the application one authentication surface with a
// single decision point behind it: a remote authority backed by the request
// dispatcher, and a local one backed by the fallback authority. Callers
// never branch on which mode is active.
package provider

import (
	"context"
	"encoding/json"

	"lunaalba-client/internal/core/api"
	"lunaalba-client/internal/core/localauth"
)

// Authority is the minimum backend surface both modes implement. Every
// operation reports through the dispatcher's Outcome shape so remote and
// local results are interchangeable.
type Authority interface {
	Authenticate(ctx context.Context, email, password string) api.Outcome
	CreateAccount(ctx context.Context, email, password string, profile localauth.Profile) api.Outcome
	CurrentUser(ctx context.Context) api.Outcome
	Logout(ctx context.Context) api.Outcome
}

// tokenPayload is the auth payload both authorities produce: the user record
// plus the session credential.
type tokenPayload struct {
	User         json.RawMessage `json:"user,omitempty"`
	AccessToken  string          `json:"accessToken"`
	ExpiresIn    int             `json:"expiresIn"`
	RefreshToken string          `json:"refreshToken,omitempty"`
}

// authEnvelope tolerates the backend's { success, data } wrapping as well as
// a bare payload.
type authEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	tokenPayload
}

// unwrapTokens extracts the token payload from a successful auth outcome.
func unwrapTokens(o api.Outcome) (tokenPayload, bool) {
	var env authEnvelope
	if err := o.Decode(&env); err != nil {
		return tokenPayload{}, false
	}
	result := env.tokenPayload
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &result); err != nil {
			return tokenPayload{}, false
		}
	}
	if result.AccessToken == "" {
		return tokenPayload{}, false
	}
	return result, true
}
