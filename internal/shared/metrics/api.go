package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// APIClientMetrics holds metrics for the backend request dispatcher
type APIClientMetrics struct {
	Requests         prometheus.Histogram
	Outcomes         *prometheus.CounterVec
	Refreshes        *prometheus.CounterVec
	RateLimitBlocks  prometheus.Counter
	RetriedRequests  prometheus.Counter
}

var apiClientMetrics *APIClientMetrics

// InitAPIClient initializes and registers metrics for the request dispatcher
func InitAPIClient() *APIClientMetrics {
	if apiClientMetrics != nil {
		return apiClientMetrics
	}

	apiClientMetrics = &APIClientMetrics{
		Requests: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lunaalba",
			Subsystem: "api",
			Name:      "request_seconds",
			Help:      "Duration of backend requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lunaalba",
				Subsystem: "api",
				Name:      "outcomes_total",
				Help:      "Total request outcomes by class",
			},
			[]string{"class"},
		),
		Refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lunaalba",
				Subsystem: "api",
				Name:      "token_refreshes_total",
				Help:      "Total refresh attempts by result",
			},
			[]string{"result"},
		),
		RateLimitBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lunaalba",
			Subsystem: "api",
			Name:      "rate_limit_blocks_total",
			Help:      "Total requests short-circuited by the local rate limit tracker",
		}),
		RetriedRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lunaalba",
			Subsystem: "api",
			Name:      "retried_requests_total",
			Help:      "Total requests replayed after a successful token refresh",
		}),
	}

	prometheus.MustRegister(
		apiClientMetrics.Requests,
		apiClientMetrics.Outcomes,
		apiClientMetrics.Refreshes,
		apiClientMetrics.RateLimitBlocks,
		apiClientMetrics.RetriedRequests,
	)

	return apiClientMetrics
}

// GetAPIClient returns the request dispatcher metrics, initializing if needed
func GetAPIClient() *APIClientMetrics {
	if apiClientMetrics == nil {
		return InitAPIClient()
	}
	return apiClientMetrics
}
