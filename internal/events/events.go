// Package events publishes order lifecycle events to the notifications
// exchange.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-orders/internal/domain"
)

// Exchange is the fanout exchange every order event is published to.
const Exchange = "notifications_fanout"

type Publisher interface {
	PublishOrderEvent(ctx context.Context, e domain.OrderEvent) error
}

// Nop drops events. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishOrderEvent(context.Context, domain.OrderEvent) error { return nil }

// Broker is the subset of *rabbitmq.Client the AMQP publisher needs.
type Broker interface {
	Publish(ctx context.Context, exchange, key string, body []byte, headers amqp.Table, contentType string, persistent bool) error
}

type AMQP struct {
	broker Broker
}

func NewAMQP(b Broker) *AMQP {
	return &AMQP{broker: b}
}

func (p *AMQP) PublishOrderEvent(ctx context.Context, e domain.OrderEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	headers := amqp.Table{"event_type": e.Type, "order_id": e.OrderID}
	if err := p.broker.Publish(ctx, Exchange, e.Type, body, headers, "application/json", true); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}
