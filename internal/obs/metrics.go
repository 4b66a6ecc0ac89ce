package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Package-level collectors registered once at init. Labels stay low
// cardinality: venue and endpoint names only.
var (
	RunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "liqwatch_runs_total",
		Help: "Completed monitoring runs",
	})

	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "liqwatch_run_duration_seconds",
		Help:    "Wall-clock duration of a full monitoring run",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	FetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "liqwatch_fetch_failures_total",
		Help: "Venue data fetch failures by endpoint",
	}, []string{"venue", "endpoint"})

	VenuesSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "liqwatch_venues_skipped_total",
		Help: "Venue runs skipped because ticker or order book was unavailable",
	}, []string{"venue"})

	AlertsFired = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "liqwatch_alerts_fired_total",
		Help: "Alerts that passed cooldown and were persisted",
	}, []string{"type", "severity"})

	AlertsSuppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "liqwatch_alerts_suppressed_total",
		Help: "Alert candidates suppressed by the cooldown window",
	})

	NotifyFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "liqwatch_notify_failures_total",
		Help: "Notification deliveries that failed",
	})
)

func init() {
	prometheus.MustRegister(
		RunsTotal,
		RunDuration,
		FetchFailures,
		VenuesSkipped,
		AlertsFired,
		AlertsSuppressed,
		NotifyFailures,
	)
}
