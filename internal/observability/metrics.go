// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Resolution metrics
	ResolutionsTotal  *prometheus.CounterVec
	ResolutionLatency prometheus.Histogram

	// Endpoint metrics
	EndpointAttempts       *prometheus.CounterVec
	EndpointFaults         *prometheus.CounterVec
	LastGoodEndpointWrites prometheus.Counter

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec

	// Fallback metrics
	FallbackHits *prometheus.CounterVec

	// Store metrics
	StoreFaults *prometheus.CounterVec

	// Chain liveness (slot monitor)
	CurrentSlot  prometheus.Gauge
	WSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "holder_resolver"
	}

	return &Metrics{
		ResolutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total number of holder resolutions by source and outcome",
		}, []string{"source", "holder"}),
		ResolutionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolution_latency_seconds",
			Help:      "End-to-end holder resolution latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		EndpointAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "endpoints",
			Name:      "attempts_total",
			Help:      "Total number of endpoint attempts by result",
		}, []string{"result"}),
		EndpointFaults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "endpoints",
			Name:      "faults_total",
			Help:      "Total number of endpoint query faults by kind",
		}, []string{"kind"}),
		LastGoodEndpointWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "endpoints",
			Name:      "last_good_writes_total",
			Help:      "Total number of remembered last-good endpoint writes",
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		FallbackHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "fallback_hits_total",
			Help:      "Total number of fallback-chain resolutions by reason",
		}, []string{"reason"}),

		StoreFaults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "faults_total",
			Help:      "Total number of external store faults by store",
		}, []string{"store"}),

		CurrentSlot: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "current_slot",
			Help:      "Most recent slot observed by the slot monitor",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnects by the slot monitor",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordResolution records a completed resolution.
func RecordResolution(source string, holder bool, seconds float64) {
	h := "false"
	if holder {
		h = "true"
	}
	DefaultMetrics.ResolutionsTotal.WithLabelValues(source, h).Inc()
	DefaultMetrics.ResolutionLatency.Observe(seconds)
}

// RecordEndpointAttempt records one endpoint attempt outcome
// ("decisive" or "fault").
func RecordEndpointAttempt(result string) {
	DefaultMetrics.EndpointAttempts.WithLabelValues(result).Inc()
}

// RecordEndpointFault records one classified endpoint query fault.
func RecordEndpointFault(kind string) {
	DefaultMetrics.EndpointFaults.WithLabelValues(kind).Inc()
}

// RecordLastGoodWrite increments the remembered-endpoint write counter.
func RecordLastGoodWrite() {
	DefaultMetrics.LastGoodEndpointWrites.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordFallbackHit records a fallback-chain resolution.
func RecordFallbackHit(reason string) {
	DefaultMetrics.FallbackHits.WithLabelValues(reason).Inc()
}

// RecordStoreFault records a config/allow-list/state store fault.
func RecordStoreFault(store string) {
	DefaultMetrics.StoreFaults.WithLabelValues(store).Inc()
}

// UpdateCurrentSlot updates the slot monitor gauge.
func UpdateCurrentSlot(slot int64) {
	DefaultMetrics.CurrentSlot.Set(float64(slot))
}

// RecordWSReconnect increments the WebSocket reconnect counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}
