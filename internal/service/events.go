package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"data-manager-service/internal/entity"

	"github.com/segmentio/kafka-go"
)

const EventOrderCreated = "created"

// EventPublisher announces committed orders.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *entity.Order) error
}

// KafkaPublisher writes order events keyed "order.<event>.<order id>".
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order *entity.Order) error {
	orderJSON, err := json.Marshal(order)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(OrderEventKey(EventOrderCreated, order.OrderID)),
		Value: orderJSON,
	}
	return p.writer.WriteMessages(ctx, msg)
}

func OrderEventKey(event, orderID string) string {
	return fmt.Sprintf("order.%s.%s", event, orderID)
}

// ParseOrderEventKey splits a key built by OrderEventKey.
func ParseOrderEventKey(key string) (event, orderID string, err error) {
	parts := strings.SplitN(key, ".", 3)
	if len(parts) != 3 || parts[0] != "order" || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("malformed order event key %q", key)
	}
	return parts[1], parts[2], nil
}
