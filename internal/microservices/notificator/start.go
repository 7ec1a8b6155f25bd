package notificator

import (
	"context"
	"fmt"

	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/connections/rabbitmq"
	"restaurant-orders/internal/microservices/notificator/service"
)

// Start declares the notification topology and logs every order event until
// ctx is done.
func Start(ctx context.Context, client *rabbitmq.Client, prefetch int) error {
	log := logger.New("notification-subscriber")
	if err := client.DeclareTopology(); err != nil {
		return fmt.Errorf("declare topology: %w", err)
	}
	msgs, closeCh, err := client.Consume(rabbitmq.NotificationsQueue, "notification-subscriber", prefetch)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	defer closeCh()

	log.Info("service_started", map[string]any{"queue": rabbitmq.NotificationsQueue})
	return service.New(log).Run(ctx, msgs)
}
