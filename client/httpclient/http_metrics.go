package httpclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts dispatched attempts per method and classified outcome
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionnet_requests_total",
			Help: "Total number of dispatched requests by outcome",
		},
		[]string{"method", "outcome"},
	)

	// requestDuration tracks round trip latency
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sessionnet_request_duration_seconds",
			Help:    "Request round trip latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// replaysTotal counts requests re-issued after a refresh
	replaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessionnet_replays_total",
			Help: "Total number of requests replayed with a refreshed credential",
		},
	)

	// refreshesTotal counts refresh calls by result
	refreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionnet_refreshes_total",
			Help: "Total number of credential refresh calls",
		},
		[]string{"result"},
	)

	refreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sessionnet_refresh_duration_seconds",
			Help:    "Credential refresh latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// refreshWaiters is the current waiter queue depth
	refreshWaiters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessionnet_refresh_waiters",
			Help: "Requests waiting on the in-flight refresh",
		},
	)

	invalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessionnet_session_invalidations_total",
			Help: "Total number of session invalidation signals emitted",
		},
	)
)
