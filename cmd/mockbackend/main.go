// Command mockbackend runs a small stand-in for the production API so the
// client can be exercised end to end: token issuance and rotation, CSRF
// echoing and real rate-limit headers on every response.
package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"lunaalba-client/internal/core/config"
	"lunaalba-client/internal/shared"
	"lunaalba-client/internal/shared/logs"
)

func main() {
	ctx, stop := shared.NewSignalContext(context.Background())
	defer stop()

	cfg := config.LoadConfig()
	b := newBackend(cfg.LocalAuthSecret)

	rateLimit, err := limiter.NewRateFromFormatted("30-M")
	if err != nil {
		logs.Error("invalid rate limit format", "error", err)
		return
	}

	mux := http.NewServeMux()
	group := NewGroup(mux,
		CSRFConstructor(),
		RateLimiterConstructor(memory.NewStore(), rateLimit),
	)

	group.HandleFunc("POST /auth/signup", b.handleSignup)
	group.HandleFunc("POST /auth/login", b.handleLogin)
	group.HandleFunc("POST /auth/refresh", b.handleRefresh)
	group.HandleFunc("GET /auth/me", b.handleMe)
	group.HandleFunc("POST /auth/logout", b.handleLogout)
	mux.HandleFunc("GET /health", b.handleHealth)

	server := &http.Server{
		Addr:         ":" + cfg.MockPort,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logs.Info("mock backend listening", "port", cfg.MockPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.Error("mock backend stopped", "error", err)
			stop()
		}
	}()

	shared.WaitForShutdown(ctx, 10*time.Second, func(sctx context.Context) {
		if err := server.Shutdown(sctx); err != nil {
			logs.Error("mock backend shutdown failed", "error", err)
		}
	})
	logs.Info("mock backend stopped")
}
