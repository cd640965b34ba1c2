package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yaroslav/nassession/models"
)

// Login methods.
const (
	LoginMethodToken    = "token"
	LoginMethodPassword = "password"
)

// Results recorded on session counters.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultEmpty    = "empty"
	ResultError    = "error"
)

var (
	// LoginAttempts counts login attempts by method and result.
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nassession_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"method", "result"},
	)

	// TokenGenerations counts session token generations by result.
	TokenGenerations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nassession_token_generations_total",
			Help: "Total number of session token generation requests",
		},
		[]string{"result"},
	)

	// PushEvents counts push events applied to the session state, by topic.
	PushEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nassession_push_events_total",
			Help: "Total number of push events applied to the session state",
		},
		[]string{"topic"},
	)

	// FailoverStatus is 1 for the appliance's current failover status and 0 for the others.
	FailoverStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nassession_failover_status",
			Help: "Current failover status of the appliance (1=current)",
		},
		[]string{"status"},
	)

	// ChannelConnected is 1 while the RPC channel reports connected.
	ChannelConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nassession_channel_connected",
			Help: "Whether the appliance RPC channel is connected (1=connected)",
		},
	)

	// BootstrapDuration measures how long session initialization takes.
	BootstrapDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nassession_bootstrap_duration_seconds",
			Help:    "Session bootstrap duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)

func registerSessionMetrics() error {
	return register(
		LoginAttempts,
		TokenGenerations,
		PushEvents,
		FailoverStatus,
		ChannelConnected,
		BootstrapDuration,
	)
}

// SetFailoverStatus marks status as the current failover status.
func SetFailoverStatus(status models.FailoverStatus) {
	for _, s := range models.FailoverStatuses() {
		v := 0.0
		if s == status {
			v = 1
		}
		FailoverStatus.WithLabelValues(string(s)).Set(v)
	}
}

// SetConnected records the channel connection state.
func SetConnected(connected bool) {
	if connected {
		ChannelConnected.Set(1)
		return
	}
	ChannelConnected.Set(0)
}
