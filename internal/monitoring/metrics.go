// Package monitoring holds the Prometheus metric set for the scoring service.
package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// scoring service.
type Metrics struct {
	// Cache metrics.
	CacheOps     *prometheus.CounterVec // labels: namespace, result={hit,miss,set}
	CacheEnabled prometheus.Gauge

	// HTTP metrics.
	HTTPRequests *prometheus.CounterVec   // labels: method, route, status
	HTTPDuration *prometheus.HistogramVec // labels: method, route

	// Scoring metrics.
	ScoreOverall prometheus.Histogram

	// Warm-up metrics.
	WarmUpEntities *prometheus.CounterVec // labels: status={cached,failed,skipped}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CacheOps,
		m.CacheEnabled,
		m.HTTPRequests,
		m.HTTPDuration,
		m.ScoreOverall,
		m.WarmUpEntities,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "locality",
			Name:      "cache_ops_total",
			Help:      "Cache operations by namespace and result.",
		}, []string{"namespace", "result"}),
		CacheEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "locality",
			Name:      "cache_enabled",
			Help:      "1 when a cache backend is active, 0 when caching is disabled.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "locality",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "locality",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),
		ScoreOverall: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "locality",
			Name:      "score_overall",
			Help:      "Distribution of overall location scores.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		}),
		WarmUpEntities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "locality",
			Name:      "warmup_entities_total",
			Help:      "Warm-up entity outcomes.",
		}, []string{"status"}),
	}
}

// CacheOp implements the cache recorder contract.
func (m *Metrics) CacheOp(namespace, result string) {
	m.CacheOps.WithLabelValues(namespace, result).Inc()
}

// ObserveRequest records one handled HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveScore records one computed overall score.
func (m *Metrics) ObserveScore(overall float64) {
	m.ScoreOverall.Observe(overall)
}

// ObserveWarmUp records a warm-up report's per-entity outcomes.
func (m *Metrics) ObserveWarmUp(cached, failed, skipped int) {
	m.WarmUpEntities.WithLabelValues("cached").Add(float64(cached))
	m.WarmUpEntities.WithLabelValues("failed").Add(float64(failed))
	m.WarmUpEntities.WithLabelValues("skipped").Add(float64(skipped))
}
