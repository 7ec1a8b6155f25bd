package service

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/domain"
)

type Notificator struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Notificator {
	return &Notificator{log: log}
}

// Run handles deliveries until ctx is done or the channel closes.
func (n *Notificator) Run(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			n.Handle(d)
		}
	}
}

// Handle logs one order event and acks it. Undecodable messages are
// rejected without requeue.
func (n *Notificator) Handle(d amqp.Delivery) {
	var e domain.OrderEvent
	if err := json.Unmarshal(d.Body, &e); err != nil || e.OrderID == "" {
		if err == nil {
			err = errors.New("event without order_id")
		}
		n.log.Error("notification_rejected", err, map[string]any{"delivery_tag": d.DeliveryTag})
		_ = d.Reject(false)
		return
	}

	fields := map[string]any{"type": e.Type, "order_id": e.OrderID, "timestamp": e.Timestamp}
	if e.TableNumber != 0 {
		fields["table_number"] = e.TableNumber
	}
	if e.NewStatus != "" {
		fields["old_status"] = e.OldStatus
		fields["new_status"] = e.NewStatus
	}
	if e.EstimatedMinutes != 0 {
		fields["estimated_minutes"] = e.EstimatedMinutes
	}
	n.log.Info("notification_received", fields)
	_ = d.Ack(false)
}
