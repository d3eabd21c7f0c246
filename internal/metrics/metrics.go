package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   prometheus.CounterVec
	HTTPRequestDuration prometheus.HistogramVec

	// Counter-cache metrics
	CounterCacheHitsTotal     prometheus.CounterVec
	CounterCacheMissesTotal   prometheus.CounterVec
	CounterRefillFailuresTotal prometheus.Counter

	// Rate limiting
	RateLimitExceededTotal prometheus.CounterVec

	// Session lifecycle
	SessionsSweptTotal prometheus.Counter
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ripple_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "ripple_http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			CounterCacheHitsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ripple_counter_cache_hits_total",
					Help: "Warm reads served from the engagement counter cache",
				},
				[]string{"field"},
			),
			CounterCacheMissesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ripple_counter_cache_misses_total",
					Help: "Cold reads refilled from the durable aggregates",
				},
				[]string{"field"},
			),
			CounterRefillFailuresTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "ripple_counter_refill_failures_total",
					Help: "Fire-and-forget cache warm writes that failed after a cold read",
				},
			),
			RateLimitExceededTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ripple_rate_limit_exceeded_total",
					Help: "Requests rejected by the Redis rate limiter",
				},
				[]string{"path"},
			),
			SessionsSweptTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "ripple_sessions_swept_total",
					Help: "Expired sessions deleted by the periodic sweep",
				},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing it on first use
func Get() *Metrics {
	return Initialize()
}
