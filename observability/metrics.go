package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	escrowMetricsOnce sync.Once
	escrowRegistry    *EscrowMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record
// JSON-RPC module activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "deedvault",
				Subsystem: "module",
				Name:      "requests_total",
				Help:      "Total JSON-RPC module requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "deedvault",
				Subsystem: "module",
				Name:      "errors_total",
				Help:      "Total JSON-RPC module errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "deedvault",
				Subsystem: "module",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC module handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a module request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// EscrowMetrics tracks lifecycle transitions of property listings.
type EscrowMetrics struct {
	transitions *prometheus.CounterVec
	refunds     prometheus.Counter
	settlements prometheus.Counter
}

// Escrow returns the singleton metrics registry for listing lifecycle events.
func Escrow() *EscrowMetrics {
	escrowMetricsOnce.Do(func() {
		escrowRegistry = &EscrowMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "deedvault",
				Subsystem: "escrow",
				Name:      "transitions_total",
				Help:      "Listing state transitions segmented by operation.",
			}, []string{"operation"}),
			refunds: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "deedvault",
				Subsystem: "escrow",
				Name:      "refunds_total",
				Help:      "Down payment refunds issued to buyers.",
			}),
			settlements: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "deedvault",
				Subsystem: "escrow",
				Name:      "settlements_total",
				Help:      "Purchases settled with funds released to the seller.",
			}),
		}
		prometheus.MustRegister(
			escrowRegistry.transitions,
			escrowRegistry.refunds,
			escrowRegistry.settlements,
		)
	})
	return escrowRegistry
}

// RecordTransition counts a successful lifecycle operation.
func (m *EscrowMetrics) RecordTransition(operation string) {
	if m == nil || operation == "" {
		return
	}
	m.transitions.WithLabelValues(operation).Inc()
}

// RecordRefund counts a buyer refund.
func (m *EscrowMetrics) RecordRefund() {
	if m == nil {
		return
	}
	m.refunds.Inc()
}

// RecordSettlement counts a completed purchase.
func (m *EscrowMetrics) RecordSettlement() {
	if m == nil {
		return
	}
	m.settlements.Inc()
}
