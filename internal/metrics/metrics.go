// Package metrics exposes Prometheus counters for quoting, swaps and orders.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trader"

// Metrics holds the engine's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	QuotesTotal      *prometheus.CounterVec
	StateReadLatency *prometheus.HistogramVec
	SwapsTotal       *prometheus.CounterVec
	OrderTransitions *prometheus.CounterVec
	PendingOrders    prometheus.Gauge
}

// New registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		QuotesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Quotes computed, by state source",
		}, []string{"source"}),
		StateReadLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "state_read_seconds",
			Help:      "StateView read latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "result"}),
		SwapsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swaps_total",
			Help:      "Swap submissions, by result",
		}, []string{"result"}),
		OrderTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Limit order status transitions, by target status",
		}, []string{"status"}),
		PendingOrders: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_orders",
			Help:      "Limit orders still pending after the last tick",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordQuote(source string) {
	if m == nil {
		return
	}
	m.QuotesTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveStateRead(method string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StateReadLatency.WithLabelValues(method, result).Observe(time.Since(started).Seconds())
}

func (m *Metrics) RecordSwap(result string) {
	if m == nil {
		return
	}
	m.SwapsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordOrderTransition(status string) {
	if m == nil {
		return
	}
	m.OrderTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) SetPendingOrders(n int) {
	if m == nil {
		return
	}
	m.PendingOrders.Set(float64(n))
}
