// Package metrics exposes Prometheus collectors for the extraction service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	extractResultsTotal        *prometheus.CounterVec
	renderDurationSeconds      *prometheus.HistogramVec
	storeErrorsTotal           *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	queueDepth                 prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call this
// function multiple times.
func Init() {
	once.Do(func() {
		extractResultsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractor_results_total",
				Help: "Total number of extraction results produced, labeled by status.",
			},
			[]string{"status"},
		)

		renderDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extractor_render_duration_seconds",
				Help:    "Histogram of page render latencies, labeled by outcome.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45},
			},
			[]string{"outcome"},
		)

		storeErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractor_store_errors_total",
				Help: "Total number of result-store failures, labeled by operation.",
			},
			[]string{"op"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)

		queueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "extractor_completion_queue_depth",
				Help: "Number of cache keys waiting for background completion.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveResult increments the per-status result counter.
func ObserveResult(status string) {
	if extractResultsTotal == nil {
		return
	}
	extractResultsTotal.WithLabelValues(status).Inc()
}

// ObserveRender records the duration of a live render attempt.
func ObserveRender(ok bool, duration time.Duration) {
	if renderDurationSeconds == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	renderDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveStoreError increments the store failure counter for the given operation.
func ObserveStoreError(op string) {
	if storeErrorsTotal == nil {
		return
	}
	storeErrorsTotal.WithLabelValues(op).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetQueueDepth records the current completion queue backlog.
func SetQueueDepth(depth int) {
	if queueDepth == nil {
		return
	}
	queueDepth.Set(float64(depth))
}
