package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"data-manager-service/internal/entity"
	"data-manager-service/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// Reader is the part of *kafka.Reader the consumer needs.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// HandlerFunc receives every decoded order event.
type HandlerFunc func(ctx context.Context, event string, order entity.Order)

type Consumer struct {
	reader  Reader
	handler HandlerFunc
}

// NewConsumer returns a consumer that passes decoded events to handler.
// A nil handler logs each event.
func NewConsumer(reader Reader, handler HandlerFunc) *Consumer {
	if handler == nil {
		handler = logEvent
	}
	return &Consumer{reader: reader, handler: handler}
}

// Start reads order events until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			log.Error().Msgf("Error reading message: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		if err := c.processMessage(ctx, msg); err != nil {
			log.Error().Msgf("Error processing message at offset %d: %v", msg.Offset, err)
		}
	}
}

// processMessage decodes a message keyed "order.<event>.<order id>".
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	event, orderID, err := service.ParseOrderEventKey(string(msg.Key))
	if err != nil {
		return err
	}
	if _, err := entity.ParseOrderID(orderID); err != nil {
		return err
	}

	var order entity.Order
	if err := json.Unmarshal(msg.Value, &order); err != nil {
		return fmt.Errorf("unmarshal order %s: %w", orderID, err)
	}
	if order.OrderID != orderID {
		return fmt.Errorf("order id %q in payload does not match key %q", order.OrderID, orderID)
	}

	c.handler(ctx, event, order)
	return nil
}

func logEvent(_ context.Context, event string, order entity.Order) {
	switch event {
	case service.EventOrderCreated:
		log.Info().
			Str("order_id", order.OrderID).
			Str("customer_id", order.CustomerID).
			Str("product_id", order.ProductID).
			Int("quantity", order.Quantity).
			Str("order_date", order.OrderDate.String()).
			Msg("order created")
	default:
		log.Warn().Msgf("Unknown event type: %s", event)
	}
}
