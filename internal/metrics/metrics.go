// Package metrics exposes the Prometheus instruments shared by the sync
// server and the vault service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts sync API requests by method, route pattern,
	// and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "passvault_http_requests_total",
		Help: "Total HTTP requests handled by the sync API.",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration observes sync API request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "passvault_http_request_duration_seconds",
		Help:    "Sync API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// SyncAttemptsTotal counts best-effort mirror writes by operation.
	SyncAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "passvault_sync_attempts_total",
		Help: "Total mirror write attempts against the remote store.",
	}, []string{"op"})

	// SyncFailuresTotal counts mirror writes that exhausted their retries.
	SyncFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "passvault_sync_failures_total",
		Help: "Mirror writes that failed after retries.",
	}, []string{"op"})
)

// Handler returns the scrape endpoint for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
