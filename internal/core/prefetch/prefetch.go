// Package prefetch warms backend endpoints in parallel, e.g. the listing
// pages the UI is about to render. All calls go through the dispatcher, so
// rate-limit windows and auth headers apply as usual.
package prefetch

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"

	"lunaalba-client/internal/core/api"
	"lunaalba-client/internal/shared/logs"
)

// Fetcher is the slice of the dispatcher prefetch needs.
type Fetcher interface {
	Get(ctx context.Context, endpoint string) api.Outcome
}

const defaultWorkers = 4

// Warm fetches every endpoint through a bounded worker pool and returns the
// outcome per endpoint. Individual failures are reported in the result map,
// never returned as an error.
func Warm(ctx context.Context, fetcher Fetcher, endpoints []string, workers int) (map[string]api.Outcome, error) {
	if workers <= 0 {
		workers = defaultWorkers
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]api.Outcome, len(endpoints))
	)

	for _, endpoint := range endpoints {
		endpoint := endpoint
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			o := fetcher.Get(ctx, endpoint)
			mu.Lock()
			results[endpoint] = o
			mu.Unlock()
			if !o.OK() {
				logs.Debug("prefetch miss", "endpoint", endpoint, "status", o.Status, "error", o.Err)
			}
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			results[endpoint] = api.Outcome{Err: "prefetch pool rejected task", Status: 0}
			mu.Unlock()
		}
	}

	wg.Wait()
	return results, nil
}
