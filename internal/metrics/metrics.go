// Package metrics exposes Prometheus collectors for the HTTP API and roadmap generation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation outcomes.
const (
	GenerationSuccess      = "success"
	GenerationServiceError = "service_error"
	GenerationParseError   = "parse_error"
	GenerationInvalid      = "invalid"
	GenerationStoreError   = "store_error"
)

var (
	// httpRequestsTotal counts handled requests by method, route and status code.
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillroad_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skillroad_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// generationsTotal counts roadmap generation attempts by outcome.
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillroad_roadmap_generations_total",
			Help: "Total number of roadmap generation attempts",
		},
		[]string{"outcome"},
	)

	// Upstream calls are slow; buckets reach two minutes.
	generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skillroad_roadmap_generation_duration_seconds",
			Help:    "Duration of roadmap generation including the upstream call",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)

	topicToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillroad_topic_completion_updates_total",
			Help: "Total number of topic completion updates",
		},
		[]string{"completed"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(generationsTotal)
	prometheus.MustRegister(generationDuration)
	prometheus.MustRegister(topicToggles)
}

// ObserveHTTPRequest records one handled request.
func ObserveHTTPRequest(method, route, status string, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveGeneration records one generation attempt and its outcome.
func ObserveGeneration(outcome string, elapsed time.Duration) {
	generationsTotal.WithLabelValues(outcome).Inc()
	generationDuration.Observe(elapsed.Seconds())
}

// ObserveTopicToggle records one topic completion update.
func ObserveTopicToggle(completed bool) {
	label := "false"
	if completed {
		label = "true"
	}
	topicToggles.WithLabelValues(label).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
