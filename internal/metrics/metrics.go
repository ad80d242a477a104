// Package metrics provides Prometheus collectors for remote client calls and
// for the stub API server. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded for client calls.
const (
	OutcomeSuccess      = "success"
	OutcomeHTTPError    = "http_error"
	OutcomeNetworkError = "network_error"
	OutcomeDecodeError  = "decode_error"
)

// Collector owns a private registry and the collectors registered on it.
type Collector struct {
	registry *prometheus.Registry

	// Client metrics
	clientCalls   *prometheus.CounterVec
	clientLatency *prometheus.HistogramVec

	// Ledger metrics
	foodResolutions *prometheus.CounterVec
	ledgerFallbacks prometheus.Counter

	// Server metrics
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
}

// NewCollector creates a collector whose metric names start with namespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "nutrition"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.clientCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "calls_total",
			Help:      "Remote API calls by operation and outcome",
		},
		[]string{"operation", "outcome", "status"},
	)
	c.clientLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "call_duration_seconds",
			Help:      "Remote API call latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	c.foodResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "food_resolutions_total",
			Help:      "Barcode resolutions by winning source (\"none\" when all failed)",
		},
		[]string{"source"},
	)
	c.ledgerFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "empty_fallbacks_total",
			Help:      "Ledger loads that degraded to the empty ledger",
		},
	)

	c.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served by route and status",
		},
		[]string{"method", "route", "status"},
	)
	c.httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	c.httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served",
		},
	)

	c.registry.MustRegister(
		c.clientCalls,
		c.clientLatency,
		c.foodResolutions,
		c.ledgerFallbacks,
		c.httpRequests,
		c.httpLatency,
		c.httpInFlight,
	)

	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// =============================================================================
// Recording
// =============================================================================

// RecordClientCall records one remote call. status is the HTTP status code as
// text, or "" when no response was received.
func (c *Collector) RecordClientCall(operation, outcome, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.clientCalls.WithLabelValues(operation, outcome, status).Inc()
	c.clientLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordFoodResolution records which source resolved a barcode.
func (c *Collector) RecordFoodResolution(source string) {
	if c == nil {
		return
	}
	c.foodResolutions.WithLabelValues(source).Inc()
}

// RecordLedgerFallback records a fail-soft ledger load.
func (c *Collector) RecordLedgerFallback() {
	if c == nil {
		return
	}
	c.ledgerFallbacks.Inc()
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, status).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// IncrementInFlight marks a request as started.
func (c *Collector) IncrementInFlight() {
	if c == nil {
		return
	}
	c.httpInFlight.Inc()
}

// DecrementInFlight marks a request as finished.
func (c *Collector) DecrementInFlight() {
	if c == nil {
		return
	}
	c.httpInFlight.Dec()
}
