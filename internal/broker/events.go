package broker

import (
	"context"
	"fmt"

	"bookshop-bot/internal/models"
)

// Publisher emits order lifecycle events. Publishing is advisory: callers
// log failures and continue.
type Publisher interface {
	PublishOrderSubmitted(ctx context.Context, event *models.OrderSubmittedEvent) error
	PublishOrderModerated(ctx context.Context, event *models.OrderModeratedEvent) error
}

// EventPublisher publishes domain events through a Kafka producer.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderSubmitted publishes an OrderSubmitted event
func (ep *EventPublisher) PublishOrderSubmitted(ctx context.Context, event *models.OrderSubmittedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderNumber)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderModerated publishes an OrderModerated event
func (ep *EventPublisher) PublishOrderModerated(ctx context.Context, event *models.OrderModeratedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderNumber)
	return ep.producer.PublishEvent(ctx, key, event)
}

// NopPublisher satisfies Publisher when the event stream is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishOrderSubmitted(context.Context, *models.OrderSubmittedEvent) error {
	return nil
}

func (NopPublisher) PublishOrderModerated(context.Context, *models.OrderModeratedEvent) error {
	return nil
}
