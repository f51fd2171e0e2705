package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.ObserveOrder(decimal.RequireFromString("120.00"))
	m.ObserveOrder(decimal.RequireFromString("165.00"))
	m.IncFailure("insufficient_stock")
	m.IncFailure("")
	m.IncTransition("shipped")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.created))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failures.WithLabelValues("insufficient_stock")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failures.WithLabelValues("unknown")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.transitions.WithLabelValues("shipped")))

	count, err := testutil.GatherAndCount(reg, "batstore_order_total_amount")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCheckoutMetrics_NilRegistererIsNoop(t *testing.T) {
	m := NewCheckoutMetrics(nil)
	assert.NotPanics(t, func() {
		m.ObserveOrder(decimal.NewFromInt(10))
		m.IncFailure("x")
		m.IncTransition("confirmed")
	})

	var nilMetrics *CheckoutMetrics
	assert.NotPanics(t, func() { nilMetrics.IncFailure("x") })
}

func TestJobMetrics_Track(t *testing.T) {
	reg := prometheus.NewRegistry()
	j := NewJobMetrics(reg)

	require.NoError(t, j.Track("cart_cleanup", func() error { return nil }))
	boom := errors.New("boom")
	assert.ErrorIs(t, j.Track("cart_cleanup", func() error { return boom }), boom)

	assert.Equal(t, float64(1), testutil.ToFloat64(j.success.WithLabelValues("cart_cleanup")))
	assert.Equal(t, float64(1), testutil.ToFloat64(j.failure.WithLabelValues("cart_cleanup")))
}
