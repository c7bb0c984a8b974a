// Package health runs a periodic reachability probe against the backend so
// the provider selector can fall back before a user-facing call has to fail.
// The probe never sits in the request path.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"lunaalba-client/internal/shared/httpclient"
	"lunaalba-client/internal/shared/logs"
)

const probeTimeout = 5 * time.Second

// OnUnreachable is invoked once per transition from reachable to unreachable.
type OnUnreachable func(reason string)

// Prober probes the backend base URL on an interval and tracks reachability.
type Prober struct {
	scheduler gocron.Scheduler
	client    *http.Client
	baseURL   string
	interval  time.Duration
	reachable atomic.Bool
	onDown    OnUnreachable
	log       *slog.Logger
}

func NewProber(baseURL string, interval time.Duration, onDown OnUnreachable) (*Prober, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	p := &Prober{
		scheduler: sched,
		client:    &http.Client{Timeout: probeTimeout},
		baseURL:   baseURL,
		interval:  interval,
		onDown:    onDown,
		log:       logs.Component("health"),
	}
	p.reachable.Store(true)

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(p.Probe),
		gocron.WithTags("health:probe"),
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Start begins probing on the configured interval.
func (p *Prober) Start() {
	p.scheduler.Start()
	p.log.Info("health prober started", "base_url", p.baseURL, "interval", p.interval)
}

// Stop shuts the scheduler down.
func (p *Prober) Stop() {
	if err := p.scheduler.Shutdown(); err != nil {
		p.log.Warn("health prober shutdown failed", "error", err)
	}
}

// Reachable reports the last observed backend state.
func (p *Prober) Reachable() bool {
	return p.reachable.Load()
}

// Probe performs one reachability check. Any HTTP response at all counts as
// reachable; only a transport-level failure marks the backend down.
func (p *Prober) Probe() {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		p.log.Error("failed to build probe request", "error", err)
		return
	}
	httpclient.ApplyDefaultHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		was := p.reachable.Swap(false)
		if was {
			p.log.Warn("backend became unreachable", "error", err)
			if p.onDown != nil {
				p.onDown("health probe failed")
			}
		}
		return
	}
	resp.Body.Close()

	if !p.reachable.Swap(true) {
		p.log.Info("backend reachable again", "status", resp.StatusCode)
	}
}
