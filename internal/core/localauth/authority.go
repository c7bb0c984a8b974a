// Package localauth is the fallback authority: a locally persisted stand-in
// for the backend's authentication surface, used when no backend is
// configured or the backend is provably unreachable. It exists for
// demo/offline continuity only and is not a security boundary; the process
// acting as client is also the verifier.
package localauth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"lunaalba-client/internal/core/store"
	"lunaalba-client/internal/shared/logs"
	"lunaalba-client/internal/shared/metrics"
)

const directoryKey = "lunaalba_local_accounts"

// DefaultSessionTTL is the fixed nominal expiry for locally issued sessions.
const DefaultSessionTTL = 24 * time.Hour

// Profile carries the account fields the classifieds app collects. Opaque to
// the auth protocol itself.
type Profile struct {
	Name         string   `json:"name"`
	Nickname     string   `json:"nickname,omitempty"`
	Phone        string   `json:"phone"`
	Type         string   `json:"type"`
	Role         string   `json:"role,omitempty"`
	Location     string   `json:"location,omitempty"`
	DesiredJob   []string `json:"desiredJob,omitempty"`
	Experience   string   `json:"experience,omitempty"`
	Introduction string   `json:"introduction,omitempty"`
}

// Account is one entry in the local directory. Its lifecycle is independent
// of any session and survives restarts until explicitly cleared.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	Profile      Profile   `json:"profile"`
}

// SessionToken is a locally synthesized session credential, shape-compatible
// with the backend's token payload.
type SessionToken struct {
	Token     string `json:"accessToken"`
	ExpiresIn int    `json:"expiresIn"`
}

// Authority owns the local account directory. Both operations are
// synchronous with respect to the store and never return a raw "not found";
// failures surface through the package sentinel errors.
type Authority struct {
	mu         sync.Mutex
	store      store.Store
	secret     []byte
	sessionTTL time.Duration
	now        func() time.Time
}

type Option func(*Authority)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) { a.now = now }
}

// WithSessionTTL overrides the nominal session expiry.
func WithSessionTTL(ttl time.Duration) Option {
	return func(a *Authority) { a.sessionTTL = ttl }
}

func New(st store.Store, secret string, opts ...Option) *Authority {
	a := &Authority{
		store:      st,
		secret:     []byte(secret),
		sessionTTL: DefaultSessionTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CreateAccount stores a new account with a hashed password and a generated
// identifier. Fails with ErrDuplicateAccount when the email is taken.
func (a *Authority) CreateAccount(ctx context.Context, email, password string, profile Profile) (*Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	dir, err := a.loadDirectoryLocked(ctx)
	if err != nil {
		return nil, err
	}
	if _, exists := dir[email]; exists {
		return nil, ErrDuplicateAccount
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	acct := Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    a.now(),
		Profile:      profile,
	}
	dir[email] = acct

	if err := store.SaveJSON(ctx, a.store, directoryKey, dir); err != nil {
		return nil, err
	}

	metrics.GetLocalAuth().AccountsCreated.Inc()
	logs.Info("local account created", "account_id", acct.ID)
	return &acct, nil
}

// Authenticate verifies credentials against the local directory and issues a
// session token with the fixed nominal expiry. Fails with
// ErrInvalidCredentials when no account matches.
func (a *Authority) Authenticate(ctx context.Context, email, password string) (*Account, *SessionToken, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	m := metrics.GetLocalAuth()

	dir, err := a.loadDirectoryLocked(ctx)
	if err != nil {
		return nil, nil, err
	}
	acct, exists := dir[email]
	if !exists {
		m.Logins.WithLabelValues("failure").Inc()
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		m.Logins.WithLabelValues("failure").Inc()
		return nil, nil, ErrInvalidCredentials
	}

	token, err := a.issueSessionToken(acct)
	if err != nil {
		return nil, nil, err
	}

	m.Logins.WithLabelValues("success").Inc()
	return &acct, token, nil
}

// Account returns the directory entry for an email, or ErrInvalidCredentials.
func (a *Authority) Account(ctx context.Context, email string) (*Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	dir, err := a.loadDirectoryLocked(ctx)
	if err != nil {
		return nil, err
	}
	acct, exists := dir[email]
	if !exists {
		return nil, ErrInvalidCredentials
	}
	return &acct, nil
}

// ClearDirectory wipes the local account directory.
func (a *Authority) ClearDirectory(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Delete(ctx, directoryKey)
}

func (a *Authority) loadDirectoryLocked(ctx context.Context) (map[string]Account, error) {
	dir := make(map[string]Account)
	err := store.GetJSON(ctx, a.store, directoryKey, &dir)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return dir, nil
}
