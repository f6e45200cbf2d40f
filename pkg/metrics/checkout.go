package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeIgnored = "ignored"
	OutcomeReplay  = "duplicate"
)

// CheckoutMetrics records order and payment workflow outcomes.
type CheckoutMetrics struct {
	ordersCreated   prometheus.Counter
	intents         *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	stockDecrements *prometheus.CounterVec
	statusChanges   *prometheus.CounterVec
}

// NewCheckoutMetrics registers the workflow metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders materialized from carts.",
	})
	intents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_intents_total",
		Help: "Payment intent issuance attempts by outcome.",
	}, []string{"outcome"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Payment gateway webhook deliveries by kind and outcome.",
	}, []string{"kind", "outcome"})
	stockDecrements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_stock_decrements_total",
		Help: "Variant stock decrements applied on confirmed payment.",
	}, []string{"clamped"})
	statusChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_changes_total",
		Help: "Administrative order status transitions by target status.",
	}, []string{"status"})
	reg.MustRegister(ordersCreated, intents, webhookEvents, stockDecrements, statusChanges)
	return &CheckoutMetrics{
		ordersCreated:   ordersCreated,
		intents:         intents,
		webhookEvents:   webhookEvents,
		stockDecrements: stockDecrements,
		statusChanges:   statusChanges,
	}
}

func (m *CheckoutMetrics) IncOrderCreated() {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *CheckoutMetrics) IncPaymentIntent(outcome string) {
	if m == nil || m.intents == nil {
		return
	}
	m.intents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *CheckoutMetrics) IncWebhookEvent(kind, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncStockDecrement counts one variant update; clamped marks a floor at zero.
func (m *CheckoutMetrics) IncStockDecrement(clamped bool) {
	if m == nil || m.stockDecrements == nil {
		return
	}
	label := "false"
	if clamped {
		label = "true"
	}
	m.stockDecrements.WithLabelValues(label).Inc()
}

func (m *CheckoutMetrics) IncStatusChange(status string) {
	if m == nil || m.statusChanges == nil {
		return
	}
	m.statusChanges.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
