package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furnistore/internal/model"
)

func TestStoreMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewStoreMetrics(reg)
	require.NoError(t, err)

	m.OrderPlaced(12500)
	m.OrderPlaced(500)
	m.StatusChanged(model.OrderPending, model.OrderConfirmed)
	m.CartMerged()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ordersPlaced))
	assert.Equal(t, float64(13000), testutil.ToFloat64(m.orderRevenue))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.statusTransitions.WithLabelValues("pending", "confirmed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cartMerges))

	_, err = NewStoreMetrics(reg)
	assert.Error(t, err, "duplicate registration must fail")
}

func TestStoreMetrics_NilIsNoop(t *testing.T) {
	var m *StoreMetrics
	assert.NotPanics(t, func() {
		m.OrderPlaced(1)
		m.StatusChanged(model.OrderPending, model.OrderFailed)
		m.CartMerged()
	})
}
