package main

import (
	"context"
	"fmt"
	"time"

	"restaurant-orders/internal/clock"
	"restaurant-orders/internal/common/config"
	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/connections/database"
	"restaurant-orders/internal/connections/rabbitmq"
	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/events"
	"restaurant-orders/internal/feed"
	"restaurant-orders/internal/orders"
	"restaurant-orders/internal/reports"
	"restaurant-orders/internal/store"
	"restaurant-orders/internal/store/memory"
	"restaurant-orders/internal/store/postgres"
	"restaurant-orders/migrations"
)

// backend is everything a service mode needs from storage and messaging.
type backend struct {
	orders      *orders.Repository
	reports     *reports.Aggregator
	orderStore  store.OrderStore
	reportStore store.ReportStore
	clock       clock.Clock
	loc         *time.Location

	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg config.App, lg *logger.Logger) (*backend, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	policy, err := domain.ParsePolicy(cfg.Transitions)
	if err != nil {
		return nil, err
	}
	b := &backend{clock: clock.NewSystem(), loc: loc}
	hub := feed.NewHub()

	switch cfg.Store {
	case "postgres":
		db, err := database.ConnectDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = db.Close() })
		if err := migrations.Apply(ctx, db); err != nil {
			b.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		lg.Info("db_connected", map[string]any{"host": cfg.Database.Host, "database": cfg.Database.Name})

		pg := postgres.New(db)
		b.orderStore, b.reportStore = pg, pg

		lctx, stop := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = feed.Listen(lctx, database.DSN(cfg.Database), hub, logger.New("change-feed"))
		}()
		b.closers = append(b.closers, func() { stop(); <-done })
	default:
		mem := memory.New(hub)
		b.orderStore, b.reportStore = mem, mem
	}

	var pub events.Publisher = events.Nop{}
	if cfg.Rabbit.Enabled() {
		client, err := rabbitmq.DialRetry(ctx, rabbitConfig(cfg.Rabbit), 10, 2*time.Second)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, client.Close)
		if err := client.DeclareTopology(); err != nil {
			b.Close()
			return nil, err
		}
		lg.Info("rabbitmq_connected", map[string]any{"host": cfg.Rabbit.Host})
		pub = events.NewAMQP(client)
	}

	timeout := cfg.CallTimeout
	if timeout == 0 {
		timeout = -1
	}
	b.reports = reports.New(b.reportStore, hub, reports.Options{Clock: b.clock, Location: loc})
	b.orders = orders.New(b.orderStore, hub, b.reports, orders.Options{
		Clock:   b.clock,
		Events:  pub,
		Policy:  policy,
		Timeout: timeout,
	})
	return b, nil
}

func rabbitConfig(m config.MQ) rabbitmq.Config {
	return rabbitmq.Config{Host: m.Host, Port: m.Port, User: m.User, Password: m.Pass, VHost: m.VHost, UseTLS: m.TLS}
}
