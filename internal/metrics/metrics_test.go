package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncCheckout("created")
	m.IncCheckout("created")
	m.IncWebhook("checkout.session.completed", "paid")
	m.IncNotification("order:created", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkoutSessions.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhookEvents.WithLabelValues("checkout.session.completed", "paid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("order:created", "unknown")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.IncCheckout("x")
	New(nil).IncWebhook("a", "b")
}
