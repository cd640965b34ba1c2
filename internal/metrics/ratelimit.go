package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RateLimitChecks counts rate limit checks by scope and result.
	RateLimitChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nassession_ratelimit_checks_total",
			Help: "Total number of rate limit checks",
		},
		[]string{"limit_type", "allowed"},
	)

	// RateLimitTrackedClients tracks how many client buckets are held in memory.
	RateLimitTrackedClients = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nassession_ratelimit_tracked_clients",
			Help: "Number of rate limit buckets currently tracked",
		},
		[]string{"limit_type"},
	)
)

func registerRateLimitMetrics() error {
	return register(RateLimitChecks, RateLimitTrackedClients)
}
