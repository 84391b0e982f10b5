package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

var (
	// SweepRuns counts scheduler sweeps by outcome
	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmbot_sweep_runs_total",
			Help: "Total number of scheduled sweeps",
		},
		[]string{"sweep", "result"},
	)

	// SweepDuration tracks how long each sweep takes
	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pmbot_sweep_duration_seconds",
			Help:    "Sweep duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"sweep"},
	)

	// Notifications counts delivery attempts
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmbot_notifications_total",
			Help: "Total number of notification delivery attempts",
		},
		[]string{"kind", "result"},
	)

	// MilestonesDelayed counts milestones moved to DELAYED by the deadline sweep
	MilestonesDelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pmbot_milestones_delayed_total",
			Help: "Total number of milestones automatically marked delayed",
		},
	)

	// HTTPRequestDuration tracks command API latency by route
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pmbot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordSweep records one sweep run
func RecordSweep(sweep, result string, duration time.Duration) {
	SweepRuns.WithLabelValues(sweep, result).Inc()
	SweepDuration.WithLabelValues(sweep).Observe(duration.Seconds())
}

// RecordNotification records one delivery attempt
func RecordNotification(kind string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	Notifications.WithLabelValues(kind, result).Inc()
}

// RecordHTTPRequest records one handled request
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}
