package api

import "github.com/prometheus/client_golang/prometheus"

// Instrumentation holds the client-side Prometheus metrics. Pass a nil
// registerer to keep the counters unregistered (the default for tests and for
// embedders that do not scrape).
type Instrumentation struct {
	requests        *prometheus.CounterVec
	authRetries     prometheus.Counter
	refreshes       prometheus.Counter
	refreshFailures prometheus.Counter
}

// NewInstrumentation creates the metric set and registers it with reg when reg
// is non-nil.
func NewInstrumentation(reg prometheus.Registerer) *Instrumentation {
	m := &Instrumentation{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campaigns_client",
			Name:      "requests_total",
			Help:      "API requests issued, by method and response status.",
		}, []string{"method", "status"}),
		authRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "campaigns_client",
			Name:      "auth_retries_total",
			Help:      "Requests retried after a 401 recovered by a token refresh.",
		}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "campaigns_client",
			Name:      "token_refreshes_total",
			Help:      "Successful token refresh calls.",
		}),
		refreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "campaigns_client",
			Name:      "token_refresh_failures_total",
			Help:      "Failed token refresh calls.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.authRetries, m.refreshes, m.refreshFailures)
	}
	return m
}

func (m *Instrumentation) observeRequest(method, status string) {
	m.requests.WithLabelValues(method, status).Inc()
}
