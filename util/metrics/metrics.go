// Package metrics exposes the Prometheus collectors of the API server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts finished requests by route template and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steams_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "steams_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// RateLimitRejections counts requests answered with 429.
	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "steams_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	// RateLimitStoreErrors counts counter store failures that let a request through.
	RateLimitStoreErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "steams_rate_limit_store_errors_total",
			Help: "Total number of rate limiter store errors",
		},
	)

	// StoreUp is 1 while the named backing store answers pings.
	StoreUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "steams_store_up",
			Help: "Whether a backing store answered its last health check",
		},
		[]string{"store"},
	)

	// MapRequests counts outbound map service calls by outcome.
	MapRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steams_map_requests_total",
			Help: "Total number of requests sent to the map service",
		},
		[]string{"outcome"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
