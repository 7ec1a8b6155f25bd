package order

import (
	"context"
	"fmt"

	"restaurant-orders/internal/common/httpx"
	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/microservices/order/handler"
	"restaurant-orders/internal/session"
)

// Run serves the customer-facing order API on port until ctx is done.
func Run(ctx context.Context, port int, orders handler.Orders) error {
	log := logger.New("order-service")
	r := httpx.NewRouter(log)
	handler.New(orders, session.NewStore(), log).Register(r)
	return httpx.New(fmt.Sprintf(":%d", port), r, log).Run(ctx)
}
