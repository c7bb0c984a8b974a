// Command lunaalba wires the full client together and runs a short
// authentication round trip against the configured backend, falling back to
// the local authority when no backend is reachable. Useful as a smoke check
// and as a reference for embedding the client.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"lunaalba-client/internal/core/api"
	"lunaalba-client/internal/core/config"
	"lunaalba-client/internal/core/health"
	"lunaalba-client/internal/core/localauth"
	"lunaalba-client/internal/core/prefetch"
	"lunaalba-client/internal/core/provider"
	"lunaalba-client/internal/core/ratelimit"
	"lunaalba-client/internal/core/session"
	"lunaalba-client/internal/core/store"
	"lunaalba-client/internal/shared"
	"lunaalba-client/internal/shared/logs"
	"lunaalba-client/internal/shared/metrics"
)

func main() {
	email := flag.String("email", "demo@lunaalba.example", "account email for the demo round trip")
	password := flag.String("password", "demo-password", "account password for the demo round trip")
	warm := flag.String("warm", "", "comma-separated endpoints to prefetch after sign-in")
	flag.Parse()

	if err := run(*email, *password, *warm); err != nil {
		logs.Error("client run failed", "error", err)
		os.Exit(1)
	}
}

func run(email, password, warm string) error {
	ctx, stop := shared.NewSignalContext(context.Background())
	defer stop()

	cfg := config.LoadConfig()
	metrics.InitAPIClient()
	metrics.InitLocalAuth()

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer closeStore()

	sess := session.New(st)
	if sess.LoadPersistedToken(ctx) {
		logs.Info("resumed persisted session")
	}

	tracker := ratelimit.New()
	client := api.New(cfg.BaseURL, sess, tracker, api.WithTimeout(cfg.RequestTimeout))

	authority := localauth.New(st, cfg.LocalAuthSecret)
	selector := provider.NewSelector(
		provider.NewRemoteAuthority(client),
		provider.NewLocalAuthority(authority, st),
		cfg.BaseURL != "",
	)

	var prober *health.Prober
	if cfg.BaseURL != "" {
		prober, err = health.NewProber(cfg.BaseURL, cfg.ProbeInterval, func(reason string) {
			selector.ForceLocal(reason)
		})
		if err != nil {
			return fmt.Errorf("starting health prober: %w", err)
		}
		prober.Start()
	}

	if err := roundTrip(ctx, selector, client, email, password, warm); err != nil {
		return err
	}

	shared.WaitForShutdown(ctx, 10*time.Second, func(sctx context.Context) {
		if prober != nil {
			prober.Stop()
		}
		sess.PersistAccessToken(sctx)
	})
	return nil
}

// openStore picks the durable backend: a single JSON file by default, Redis
// when the client core runs server-side.
func openStore(cfg config.Config) (store.Store, func(), error) {
	if cfg.StoreBackend == "redis" {
		rs, err := store.ConnectRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() {
			if err := rs.Close(); err != nil {
				logs.Warn("failed to close redis store", "error", err)
			}
		}, nil
	}
	fs, err := store.NewFileStore(cfg.StorePath)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() {}, nil
}

// roundTrip signs the demo account in (creating it first if needed), fetches
// the current user, and optionally warms a set of endpoints.
func roundTrip(ctx context.Context, selector *provider.Selector, client *api.Client, email, password, warm string) error {
	o := selector.Authenticate(ctx, email, password)
	if !o.OK() {
		logs.Info("sign-in failed, creating account", "status", o.Status, "error", o.Err)
		o = selector.CreateAccount(ctx, email, password, localauth.Profile{
			Name:  "Demo User",
			Phone: "010-0000-0000",
			Type:  "personal",
		})
		if !o.OK() {
			return fmt.Errorf("account creation failed: %s (status %d)", o.Err, o.Status)
		}
	}
	logs.Info("signed in", "local_fallback", selector.UsingLocal())

	o = selector.CurrentUser(ctx)
	if !o.OK() {
		return fmt.Errorf("fetching current user failed: %s (status %d)", o.Err, o.Status)
	}
	logs.Info("current user fetched", "bytes", len(o.Data))

	if warm != "" && !selector.UsingLocal() {
		endpoints := strings.Split(warm, ",")
		results, err := prefetch.Warm(ctx, client, endpoints, 0)
		if err != nil {
			return fmt.Errorf("prefetch failed: %w", err)
		}
		for endpoint, outcome := range results {
			logs.Info("prefetched", "endpoint", endpoint, "status", outcome.Status, "ok", outcome.OK())
		}
	}
	return nil
}
