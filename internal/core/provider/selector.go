package provider

import (
	"context"
	"sync"

	"lunaalba-client/internal/core/api"
	"lunaalba-client/internal/core/localauth"
	"lunaalba-client/internal/shared/logs"
)

// Selector is the single decision point between the remote and local
// authorities. No base URL means local from the start; a status-0 outcome
// from the remote (no HTTP response was obtained at all) switches to local
// for the remainder of the session. The decision is per session, never per
// call site.
type Selector struct {
	mu         sync.Mutex
	remote     Authority
	local      Authority
	usingLocal bool
}

func NewSelector(remote *RemoteAuthority, local *LocalAuthority, haveRemote bool) *Selector {
	s := &Selector{remote: remote, local: local, usingLocal: !haveRemote}
	if s.usingLocal {
		logs.Info("no backend configured, using local fallback authority")
	}
	return s
}

// UsingLocal reports whether the fallback authority is active.
func (s *Selector) UsingLocal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usingLocal
}

// ForceLocal switches to the fallback authority for the rest of the session.
// Used by the health prober and by observe on hard unreachability.
func (s *Selector) ForceLocal(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usingLocal {
		s.usingLocal = true
		logs.Warn("switching to local fallback authority", "reason", reason)
	}
}

func (s *Selector) active() Authority {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usingLocal {
		return s.local
	}
	return s.remote
}

// observe inspects a remote outcome and flips to local when the backend
// proved unreachable (status 0 covers timeout, abort and connection failure).
func (s *Selector) observe(o api.Outcome) {
	if o.Status == 0 {
		s.ForceLocal("backend unreachable")
	}
}

func (s *Selector) Authenticate(ctx context.Context, email, password string) api.Outcome {
	a := s.active()
	o := a.Authenticate(ctx, email, password)
	if a == s.remote {
		s.observe(o)
		// Retry locally right away so the caller is not stranded by the
		// request that discovered the outage.
		if o.Status == 0 {
			return s.local.Authenticate(ctx, email, password)
		}
	}
	return o
}

func (s *Selector) CreateAccount(ctx context.Context, email, password string, profile localauth.Profile) api.Outcome {
	a := s.active()
	o := a.CreateAccount(ctx, email, password, profile)
	if a == s.remote {
		s.observe(o)
		if o.Status == 0 {
			return s.local.CreateAccount(ctx, email, password, profile)
		}
	}
	return o
}

func (s *Selector) CurrentUser(ctx context.Context) api.Outcome {
	a := s.active()
	o := a.CurrentUser(ctx)
	if a == s.remote {
		s.observe(o)
	}
	return o
}

func (s *Selector) Logout(ctx context.Context) api.Outcome {
	a := s.active()
	o := a.Logout(ctx)
	if a == s.remote {
		s.observe(o)
	}
	return o
}

var _ Authority = (*Selector)(nil)
