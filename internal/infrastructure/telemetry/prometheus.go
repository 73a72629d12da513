package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PromMetrics owns a private registry with the gateway and cache collectors.
// Safe for concurrent use.
type PromMetrics struct {
	registry *prometheus.Registry

	gatewayRequests *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	gatewayRetries  *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
}

// NewPromMetrics creates the collectors on a fresh registry together with
// the Go runtime and process collectors.
func NewPromMetrics() *PromMetrics {
	m := &PromMetrics{registry: prometheus.NewRegistry()}

	m.gatewayRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ims",
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Requests sent to the inventory backend.",
	}, []string{"method", "endpoint", "status"})
	m.gatewayDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ims",
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Latency of requests to the inventory backend.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint"})
	m.gatewayRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ims",
		Subsystem: "gateway",
		Name:      "retries_total",
		Help:      "Read requests retried after a transient failure.",
	}, []string{"endpoint"})
	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ims",
		Subsystem: "report_cache",
		Name:      "lookups_total",
		Help:      "Report data cache lookups by result.",
	}, []string{"kind", "result"})

	m.registry.MustRegister(
		m.gatewayRequests,
		m.gatewayDuration,
		m.gatewayRetries,
		m.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one completed backend request. Status 0 means the
// request failed before a response arrived.
func (m *PromMetrics) ObserveRequest(method, endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.gatewayRequests.WithLabelValues(method, endpoint, label).Inc()
	m.gatewayDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// ObserveRetry counts a retried read.
func (m *PromMetrics) ObserveRetry(endpoint string) {
	if m == nil {
		return
	}
	m.gatewayRetries.WithLabelValues(endpoint).Inc()
}

// ObserveCache counts a cache hit or miss for a record kind.
func (m *PromMetrics) ObserveCache(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *PromMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
