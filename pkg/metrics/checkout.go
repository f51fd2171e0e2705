package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// CheckoutMetrics records order finalization outcomes.
type CheckoutMetrics struct {
	created     prometheus.Counter
	failures    *prometheus.CounterVec
	orderValue  prometheus.Histogram
	transitions *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batstore_orders_created_total",
		Help: "Orders successfully finalized.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batstore_checkout_failures_total",
		Help: "Rejected or failed checkout attempts by reason.",
	}, []string{"reason"})
	orderValue := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "batstore_order_total_amount",
		Help:    "Grand total of finalized orders.",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batstore_order_status_transitions_total",
		Help: "Order status changes by target status.",
	}, []string{"status"})
	reg.MustRegister(created, failures, orderValue, transitions)
	return &CheckoutMetrics{
		created:     created,
		failures:    failures,
		orderValue:  orderValue,
		transitions: transitions,
	}
}

// ObserveOrder counts a finalized order and records its total.
func (m *CheckoutMetrics) ObserveOrder(total decimal.Decimal) {
	if m == nil || m.created == nil {
		return
	}
	m.created.Inc()
	m.orderValue.Observe(total.InexactFloat64())
}

// IncFailure counts a rejected checkout.
func (m *CheckoutMetrics) IncFailure(reason string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncTransition counts an order moving into status.
func (m *CheckoutMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
