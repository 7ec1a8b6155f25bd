package service

import (
	"bytes"
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"

	"restaurant-orders/internal/common/logger"
)

type acker struct {
	acked, rejected int
}

func (a *acker) Ack(uint64, bool) error        { a.acked++; return nil }
func (a *acker) Nack(uint64, bool, bool) error { return nil }
func (a *acker) Reject(uint64, bool) error     { a.rejected++; return nil }

func TestHandle(t *testing.T) {
	var buf bytes.Buffer
	n := New(logger.NewWithWriter("notification-subscriber", &buf))
	a := &acker{}

	n.Handle(amqp.Delivery{Acknowledger: a, Body: []byte(
		`{"type":"order.status_changed","order_id":"o-1","table_number":5,"old_status":"ready","new_status":"served","timestamp":"2024-03-09T12:00:00Z"}`)})
	assert.Equal(t, 1, a.acked)
	assert.Contains(t, buf.String(), `"action":"notification_received"`)
	assert.Contains(t, buf.String(), `"new_status":"served"`)

	n.Handle(amqp.Delivery{Acknowledger: a, Body: []byte(`garbage`)})
	n.Handle(amqp.Delivery{Acknowledger: a, Body: []byte(`{"type":"order.created"}`)})
	assert.Equal(t, 2, a.rejected)
}

func TestRun_StopsOnContextAndClose(t *testing.T) {
	n := New(logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, n.Run(ctx, make(chan amqp.Delivery)))

	msgs := make(chan amqp.Delivery)
	close(msgs)
	assert.Error(t, n.Run(context.Background(), msgs))
}
