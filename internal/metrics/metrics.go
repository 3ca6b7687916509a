package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics agrupa los contadores del flujo de checkout.
type Metrics struct {
	checkoutSessions *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	notifications    *prometheus.CounterVec
}

// New registra los contadores. Con reg nil devuelve un Metrics que no hace nada.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	checkout := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_total",
		Help: "Checkout session requests by outcome.",
	}, []string{"outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stripe_webhook_events_total",
		Help: "Stripe webhook deliveries by event type and outcome.",
	}, []string{"type", "outcome"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_notifications_total",
		Help: "Order notifications broadcast to admins.",
	}, []string{"event", "transport"})
	reg.MustRegister(checkout, webhooks, notifications)

	return &Metrics{
		checkoutSessions: checkout,
		webhookEvents:    webhooks,
		notifications:    notifications,
	}
}

func (m *Metrics) IncCheckout(outcome string) {
	if m == nil || m.checkoutSessions == nil {
		return
	}
	m.checkoutSessions.WithLabelValues(label(outcome)).Inc()
}

func (m *Metrics) IncWebhook(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(label(eventType), label(outcome)).Inc()
}

func (m *Metrics) IncNotification(event, transport string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(label(event), label(transport)).Inc()
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
