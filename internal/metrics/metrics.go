// Package metrics holds Prometheus instruments used across the signup
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DuplicateChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_duplicate_checks_total",
			Help: "Duplicate checks resolved, by field and outcome.",
		}, []string{"field", "outcome"})

	StaleResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_stale_results_total",
			Help: "Duplicate-check results discarded because the value changed while in flight.",
		}, []string{"field"})

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_submissions_total",
			Help: "Registration attempts, by outcome.",
		}, []string{"outcome"})

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signup_active_sessions",
			Help: "Number of signup sessions currently held in memory.",
		})

	MemberAPISeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signup_member_api_seconds",
			Help:    "Latency of member API calls, by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"})
)

func init() {
	prometheus.MustRegister(
		DuplicateChecksTotal,
		StaleResultsTotal,
		SubmissionsTotal,
		ActiveSessions,
		MemberAPISeconds,
	)
}
