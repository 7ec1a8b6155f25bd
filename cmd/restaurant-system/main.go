package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"restaurant-orders/internal/common/config"
	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/connections/rabbitmq"
	"restaurant-orders/internal/microservices/kitchen"
	kitchenhandler "restaurant-orders/internal/microservices/kitchen/handler"
	"restaurant-orders/internal/microservices/notificator"
	"restaurant-orders/internal/microservices/order"
	"restaurant-orders/internal/microservices/tracker"
	"restaurant-orders/internal/seed"
)

const modes = "order-service | tracking-service | kitchen-service | all | notification-subscriber | seed | simulate"

func main() {
	mode := flag.String("mode", "", modes)
	cfgPath := flag.String("config", "", "path to YAML config (default: ./config.yaml if present)")
	port := flag.Int("port", 0, "http port, overrides the config for single-service modes")
	prefetch := flag.Int("prefetch", 10, "notification-subscriber: RabbitMQ prefetch")
	count := flag.Int("count", 1, "simulate: number of orders to place")
	interval := flag.Duration("interval", 0, "simulate: pause between orders")
	devControls := flag.Bool("dev", false, "kitchen-service: enable /dev/seed and /dev/simulate")
	flag.Parse()

	path := *cfgPath
	if path == "" {
		if p, err := config.FindConfig(); err == nil {
			path = p
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Pretty)
	lg := logger.New("bootstrap")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *mode, cfg, options{port: *port, prefetch: *prefetch, count: *count, interval: *interval, dev: *devControls}, lg); err != nil {
		lg.Error("fatal", err, map[string]any{"mode": *mode})
		os.Exit(1)
	}
}

type options struct {
	port     int
	prefetch int
	count    int
	interval time.Duration
	dev      bool
}

func pick(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

func run(ctx context.Context, mode string, cfg config.App, opt options, lg *logger.Logger) error {
	if mode == "notification-subscriber" {
		if !cfg.Rabbit.Enabled() {
			return fmt.Errorf("notification-subscriber needs rabbitmq.host")
		}
		client, err := rabbitmq.DialRetry(ctx, rabbitConfig(cfg.Rabbit), 10, 2*time.Second)
		if err != nil {
			return err
		}
		defer client.Close()
		return notificator.Start(ctx, client, opt.prefetch)
	}

	switch mode {
	case "order-service", "tracking-service", "kitchen-service", "all", "seed", "simulate":
	default:
		return fmt.Errorf("--mode is required: %s", modes)
	}

	b, err := openBackend(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer b.Close()
	lg.Info("service_started", map[string]any{"mode": mode, "store": cfg.Store, "transitions": cfg.Transitions})

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	dev := kitchenhandler.DevControls{}
	if opt.dev || cfg.Store == "memory" {
		dev.Seed = func(ctx context.Context) error {
			_, err := seed.InitializeMockData(ctx, b.orderStore, b.reportStore, b.clock.Now(), b.loc)
			return err
		}
		dev.Simulate = func(ctx context.Context) (string, error) { return seed.SimulateNewOrder(ctx, b.orders, rnd) }
	}

	switch mode {
	case "order-service":
		return order.Run(ctx, pick(opt.port, cfg.HTTP.OrderPort), b.orders)
	case "tracking-service":
		return tracker.Run(ctx, pick(opt.port, cfg.HTTP.TrackingPort), b.orders)
	case "kitchen-service":
		return kitchen.Run(ctx, pick(opt.port, cfg.HTTP.KitchenPort), b.orders, b.reports, dev)
	case "all":
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return order.Run(gctx, cfg.HTTP.OrderPort, b.orders) })
		g.Go(func() error { return tracker.Run(gctx, cfg.HTTP.TrackingPort, b.orders) })
		g.Go(func() error { return kitchen.Run(gctx, cfg.HTTP.KitchenPort, b.orders, b.reports, dev) })
		return g.Wait()
	case "seed":
		ids, err := seed.InitializeMockData(ctx, b.orderStore, b.reportStore, b.clock.Now(), b.loc)
		if err != nil {
			return err
		}
		lg.Info("seed_completed", map[string]any{"orders": len(ids)})
		return nil
	default:
		for i := 0; i < opt.count; i++ {
			id, err := seed.SimulateNewOrder(ctx, b.orders, rnd)
			if err != nil {
				return err
			}
			lg.Info("order_simulated", map[string]any{"order_id": id})
			if opt.interval > 0 && i < opt.count-1 {
				select {
				case <-time.After(opt.interval):
				case <-ctx.Done():
					return nil
				}
			}
		}
		return nil
	}
}
