package kitchen

import (
	"context"
	"fmt"

	"restaurant-orders/internal/common/httpx"
	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/microservices/kitchen/handler"
)

// Run serves the kitchen display API on port until ctx is done.
func Run(ctx context.Context, port int, orders handler.Orders, reports handler.Reports, dev handler.DevControls) error {
	log := logger.New("kitchen-service")
	r := httpx.NewRouter(log)
	handler.New(orders, reports, dev, log).Register(r)
	return httpx.New(fmt.Sprintf(":%d", port), r, log).Run(ctx)
}
