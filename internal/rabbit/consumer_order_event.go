package rabbit

import (
	"context"
	"encoding/json"
	"errors"

	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/logger"
)

// EventSink recibe los eventos que llegan por Rabbit (el hub de websockets).
type EventSink interface {
	Publish(ctx context.Context, evt dto.OrderEvent)
}

type OrderEventConsumer struct {
	sink EventSink
	log  *logger.Logger
}

func NewOrderEventConsumer(sink EventSink, log *logger.Logger) *OrderEventConsumer {
	if log == nil {
		log = logger.Nop()
	}
	return &OrderEventConsumer{sink: sink, log: log}
}

func (c *OrderEventConsumer) Handle(msg []byte) error {
	ctx := context.Background()

	var evt dto.OrderEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		c.log.Error(ctx, "order event unreadable", err)
		return err
	}
	if evt.Event == "" || evt.Order == nil {
		err := errors.New("order event without type or order")
		c.log.Error(ctx, "order event discarded", err)
		return err
	}

	c.sink.Publish(ctx, evt)
	return nil
}
