package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LocalAuthMetrics holds metrics for the fallback authority
type LocalAuthMetrics struct {
	AccountsCreated prometheus.Counter
	Logins          *prometheus.CounterVec
}

var localAuthMetrics *LocalAuthMetrics

// InitLocalAuth initializes and registers metrics for the fallback authority
func InitLocalAuth() *LocalAuthMetrics {
	if localAuthMetrics != nil {
		return localAuthMetrics
	}

	localAuthMetrics = &LocalAuthMetrics{
		AccountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lunaalba",
			Subsystem: "localauth",
			Name:      "accounts_created_total",
			Help:      "Total accounts created in the local directory",
		}),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lunaalba",
				Subsystem: "localauth",
				Name:      "logins_total",
				Help:      "Total local authentication attempts by result",
			},
			[]string{"result"},
		),
	}

	prometheus.MustRegister(
		localAuthMetrics.AccountsCreated,
		localAuthMetrics.Logins,
	)

	return localAuthMetrics
}

// GetLocalAuth returns the fallback authority metrics, initializing if needed
func GetLocalAuth() *LocalAuthMetrics {
	if localAuthMetrics == nil {
		return InitLocalAuth()
	}
	return localAuthMetrics
}
