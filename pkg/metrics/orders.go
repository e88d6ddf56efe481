package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records checkout and routing outcomes.
type OrderMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	ordersCreated    *prometheus.CounterVec
	stockConflicts   *prometheus.CounterVec
	routingConflicts prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"order_type"})
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created, labeled by type.",
	}, []string{"order_type"})
	stockConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_conflicts_total",
		Help: "Checkout attempts rejected because stock ran out.",
	}, []string{"order_type"})
	routingConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "routing_conflicts_total",
		Help: "Tenant assignments lost to a concurrent claim.",
	})
	reg.MustRegister(checkoutDuration, ordersCreated, stockConflicts, routingConflicts)
	return &OrderMetrics{
		checkoutDuration: checkoutDuration,
		ordersCreated:    ordersCreated,
		stockConflicts:   stockConflicts,
		routingConflicts: routingConflicts,
	}
}

// ObserveCheckout records the duration of a checkout transaction.
func (m *OrderMetrics) ObserveCheckout(orderType string, duration time.Duration) {
	if m == nil || m.checkoutDuration == nil {
		return
	}
	m.checkoutDuration.WithLabelValues(normalizeLabel(orderType)).Observe(duration.Seconds())
}

// IncOrderCreated increments the created counter for the given order type.
func (m *OrderMetrics) IncOrderCreated(orderType string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(orderType)).Inc()
}

// IncStockConflict increments the oversell rejection counter.
func (m *OrderMetrics) IncStockConflict(orderType string) {
	if m == nil || m.stockConflicts == nil {
		return
	}
	m.stockConflicts.WithLabelValues(normalizeLabel(orderType)).Inc()
}

// IncRoutingConflict increments the lost assignment counter.
func (m *OrderMetrics) IncRoutingConflict() {
	if m == nil || m.routingConflicts == nil {
		return
	}
	m.routingConflicts.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
