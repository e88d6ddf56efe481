package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOrderMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)

	m.IncOrderCreated("standard")
	m.IncOrderCreated("standard")
	m.IncOrderCreated("booking")
	m.IncStockConflict("standard")
	m.IncRoutingConflict()
	m.ObserveCheckout("standard", 120*time.Millisecond)

	if got := testutil.ToFloat64(m.ordersCreated.WithLabelValues("standard")); got != 2 {
		t.Fatalf("expected 2 standard orders, got %v", got)
	}
	if got := testutil.ToFloat64(m.ordersCreated.WithLabelValues("booking")); got != 1 {
		t.Fatalf("expected 1 booking order, got %v", got)
	}
	if got := testutil.ToFloat64(m.stockConflicts.WithLabelValues("standard")); got != 1 {
		t.Fatalf("expected 1 stock conflict, got %v", got)
	}
	if got := testutil.ToFloat64(m.routingConflicts); got != 1 {
		t.Fatalf("expected 1 routing conflict, got %v", got)
	}
}

func TestOrderMetricsNilSafe(t *testing.T) {
	var m *OrderMetrics
	m.IncOrderCreated("standard")
	m.IncStockConflict("")
	m.IncRoutingConflict()
	m.ObserveCheckout("", time.Second)

	empty := NewOrderMetrics(nil)
	empty.IncOrderCreated("standard")
	empty.IncRoutingConflict()
}
