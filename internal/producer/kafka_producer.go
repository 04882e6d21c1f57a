package producer

import (
	"context"
	"encoding/json"
	"time"

	"commerce-service/internal/service"

	"github.com/segmentio/kafka-go"
)

// EventProducer publishes commerce lifecycle events to a single topic.
// Implements service.EventBus.
type EventProducer struct {
	writer *kafka.Writer
}

func NewEventProducer(brokers []string, topic string) *EventProducer {
	return &EventProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func (p *EventProducer) publish(ctx context.Context, key, event string, data any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *EventProducer) PublishOrderCreated(ctx context.Context, e service.OrderCreatedEvent) error {
	return p.publish(ctx, e.OrderID.String(), "order.created", e)
}

func (p *EventProducer) PublishOrderStatusChanged(ctx context.Context, e service.OrderStatusChangedEvent) error {
	return p.publish(ctx, e.OrderID.String(), "order.status_changed", e)
}

func (p *EventProducer) PublishPaymentStatusChanged(ctx context.Context, e service.PaymentStatusChangedEvent) error {
	return p.publish(ctx, e.OrderID.String(), "payment.status_changed", e)
}

func (p *EventProducer) PublishRefundIssued(ctx context.Context, e service.RefundIssuedEvent) error {
	return p.publish(ctx, e.OrderID.String(), "refund.issued", e)
}

func (p *EventProducer) Close() error {
	return p.writer.Close()
}
