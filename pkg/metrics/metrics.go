// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_generations_total",
			Help: "Generation runs by outcome (completed, failed)",
		},
		[]string{"outcome"},
	)

	ActiveGenerations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "autopilot_active_generations",
			Help: "Generation runs currently executing",
		},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autopilot_stage_duration_seconds",
			Help:    "Wall time per pipeline stage",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	DegradationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_degradations_total",
			Help: "Optional features that failed during a run",
		},
		[]string{"kind"},
	)

	CreditsDeductedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_credits_deducted_total",
			Help: "Credits charged by operation",
		},
		[]string{"operation"},
	)

	ImagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_images_total",
			Help: "Image placeholder resolutions by outcome (resolved, failed, stripped)",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		GenerationsTotal,
		ActiveGenerations,
		StageDuration,
		DegradationsTotal,
		CreditsDeductedTotal,
		ImagesTotal,
	)
}
