package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"furnistore/internal/model"
)

// StoreMetrics holds storefront business counters. A nil *StoreMetrics is a no-op.
type StoreMetrics struct {
	ordersPlaced      prometheus.Counter
	orderRevenue      prometheus.Counter
	statusTransitions *prometheus.CounterVec
	cartMerges        prometheus.Counter
}

// NewStoreMetrics creates and registers the storefront counters on reg.
func NewStoreMetrics(reg prometheus.Registerer) (*StoreMetrics, error) {
	m := &StoreMetrics{
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Total number of orders placed through checkout.",
		}),
		orderRevenue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_placed_cents_total",
			Help: "Sum of order totals at checkout, in cents.",
		}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Order status changes by source and target status.",
		}, []string{"from", "to"}),
		cartMerges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_merges_total",
			Help: "Guest carts merged into signed-in carts.",
		}),
	}

	for _, c := range []prometheus.Collector{m.ordersPlaced, m.orderRevenue, m.statusTransitions, m.cartMerges} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// OrderPlaced records a successful checkout.
func (m *StoreMetrics) OrderPlaced(totalCents int64) {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
	m.orderRevenue.Add(float64(totalCents))
}

// StatusChanged records an order status transition.
func (m *StoreMetrics) StatusChanged(from, to model.OrderStatus) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(string(from), string(to)).Inc()
}

// CartMerged records a guest cart merge.
func (m *StoreMetrics) CartMerged() {
	if m == nil {
		return
	}
	m.cartMerges.Inc()
}
