package tracker

import (
	"context"
	"fmt"

	"restaurant-orders/internal/common/httpx"
	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/microservices/tracker/handler"
)

// Run serves the customer tracking API on port until ctx is done.
func Run(ctx context.Context, port int, orders handler.Orders) error {
	log := logger.New("tracking-service")
	r := httpx.NewRouter(log)
	handler.New(orders).Register(r)
	return httpx.New(fmt.Sprintf(":%d", port), r, log).Run(ctx)
}
