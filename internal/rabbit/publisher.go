package rabbit

import (
	"context"
	"encoding/json"
	"time"

	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/logger"
	"storefront-checkout/internal/metrics"
	"storefront-checkout/internal/model"

	"github.com/rabbitmq/amqp091-go"
)

// Exchange fanout compartido por todas las instancias del servicio
const OrderEventsExchange = "order_events"

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Publisher implementa el notifier publicando en Rabbit; cada instancia
// reenvía luego a sus admins conectados por websocket.
type Publisher struct {
	ch      publishChannel
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewPublisher(ch publishChannel, log *logger.Logger, m *metrics.Metrics) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{ch: ch, log: log, metrics: m}
}

func (p *Publisher) NotifyNewOrder(ctx context.Context, o *model.Order) {
	p.publish(ctx, dto.OrderEvent{Event: dto.EventOrderCreated, Order: o})
}

func (p *Publisher) NotifyOrderStatusChanged(ctx context.Context, o *model.Order) {
	p.publish(ctx, dto.OrderEvent{Event: dto.EventOrderStatusChanged, Order: o})
}

// Best-effort: si falla solo se loguea.
func (p *Publisher) publish(ctx context.Context, evt dto.OrderEvent) {
	body, err := json.Marshal(evt)
	if err != nil {
		p.log.Error(ctx, "order event not encoded", err)
		return
	}

	err = p.ch.PublishWithContext(ctx, OrderEventsExchange, "", false, false, amqp091.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now().UTC(),
		Body:        body,
	})
	if err != nil {
		p.log.Error(ctx, "order event not published", err)
		return
	}
	p.metrics.IncNotification(evt.Event, "rabbitmq")
}
