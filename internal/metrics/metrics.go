// Package metrics provides Prometheus instruments for StyleShift.
//
// Labels stay low-cardinality: never session ids or free-text descriptions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationTotal counts completed generation calls by provider and outcome.
	GenerationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "styleshift_generation_total",
		Help: "Total number of completed generation requests, by provider and outcome.",
	}, []string{"provider", "outcome"})

	// GenerationDuration observes how long generation calls take.
	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "styleshift_generation_duration_seconds",
		Help:    "Duration of generation requests in seconds.",
		Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"provider"})

	// GenerationDiscarded counts results that arrived after the session moved on.
	GenerationDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "styleshift_generation_discarded_total",
		Help: "Total number of generation results discarded because the request was no longer current.",
	})

	// CameraAttempts counts device acquisition attempts by cascade step and result.
	CameraAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "styleshift_camera_attempts_total",
		Help: "Total number of camera acquisition attempts, by fallback step and result.",
	}, []string{"step", "result"})

	// UploadsTotal counts file intake results.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "styleshift_uploads_total",
		Help: "Total number of file uploads, by result.",
	}, []string{"result"})

	// SessionsActive tracks live sessions held by the server.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "styleshift_sessions_active",
		Help: "Current number of live try-on sessions.",
	})
)
