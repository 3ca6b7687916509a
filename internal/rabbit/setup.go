// setup.go
package rabbit

import (
	"context"
	"fmt"

	"storefront-checkout/internal/logger"

	"github.com/rabbitmq/amqp091-go"
)

// DeclareExchange declara el exchange fanout de eventos de órdenes.
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		OrderEventsExchange,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	)
}

// SetupRelay suscribe esta instancia al exchange y reenvía los eventos al sink.
func SetupRelay(ch *amqp091.Channel, sink EventSink, log *logger.Logger) error {
	ctx := context.Background()
	consumer := NewOrderEventConsumer(sink, log)

	if err := DeclareExchange(ch); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// 1. Cola exclusiva por instancia, se borra al desconectar
	q, err := ch.QueueDeclare(
		"",
		false,
		true,
		true,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// 2. Bindear al exchange fanout
	if err := ch.QueueBind(q.Name, "", OrderEventsExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	// 3. Consumir
	msgs, err := ch.Consume(
		q.Name,
		"",
		true,
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue: %w", err)
	}

	go func() {
		for m := range msgs {
			_ = consumer.Handle(m.Body)
		}
		log.Warn(ctx, "order event relay stopped")
	}()

	log.Info(ctx, fmt.Sprintf("subscribed to %s exchange (fanout)", OrderEventsExchange))
	return nil
}
