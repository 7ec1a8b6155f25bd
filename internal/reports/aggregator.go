// Package reports keeps the daily served-items and popular-items tables.
package reports

import (
	"context"
	"errors"
	"time"

	"restaurant-orders/internal/clock"
	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/feed"
	"restaurant-orders/internal/live"
	"restaurant-orders/internal/store"
)

const (
	ReportServed  = "served_items"
	ReportPopular = "popular_items"
)

type Options struct {
	Clock clock.Clock
	// Location decides which calendar day an order is counted in.
	Location *time.Location
	Logger   *logger.Logger
}

type Aggregator struct {
	store  store.ReportStore
	source feed.Source
	clock  clock.Clock
	loc    *time.Location
	log    *logger.Logger
}

func New(st store.ReportStore, src feed.Source, opts Options) *Aggregator {
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = logger.New("reports")
	}
	return &Aggregator{store: st, source: src, clock: opts.Clock, loc: opts.Location, log: opts.Logger}
}

// Today is the current date partition.
func (a *Aggregator) Today() string {
	return domain.DatePartition(a.clock.Now(), a.loc)
}

// RecordServedItems adds every line of o to today's served-items partition,
// keyed by item name. A failing line does not stop the others; the returned
// error joins one *domain.AggregationError per failed line.
func (a *Aggregator) RecordServedItems(ctx context.Context, o domain.Order) error {
	date := a.Today()
	var errs []error
	for _, it := range o.Items {
		if err := a.store.IncrementServed(ctx, date, it.Name, it.Quantity, it.LineTotal()); err != nil {
			errs = append(errs, &domain.AggregationError{Report: ReportServed, Key: it.Name, Err: err})
		}
	}
	return errors.Join(errs...)
}

// UpdatePopularItems adds each line's quantity to today's popular-items
// partition, keyed by item ID.
func (a *Aggregator) UpdatePopularItems(ctx context.Context, o domain.Order) error {
	date := a.Today()
	var errs []error
	for _, it := range o.Items {
		id := it.ID
		if id == "" {
			id = it.Name
		}
		if err := a.store.IncrementPopular(ctx, date, id, it.Name, it.Quantity); err != nil {
			errs = append(errs, &domain.AggregationError{Report: ReportPopular, Key: id, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Record runs both aggregations and logs every failed line. It is not
// idempotent: recording the same order twice counts it twice.
func (a *Aggregator) Record(ctx context.Context, o domain.Order) {
	for _, err := range []error{a.RecordServedItems(ctx, o), a.UpdatePopularItems(ctx, o)} {
		for _, e := range unjoin(err) {
			fields := map[string]any{"order_id": o.ID}
			var agg *domain.AggregationError
			if errors.As(e, &agg) {
				fields["report"] = agg.Report
				fields["item"] = agg.Key
			}
			a.log.Error("aggregation_failed", e, fields)
		}
	}
}

func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func (a *Aggregator) ServedItems(ctx context.Context, date string) ([]domain.ServedItem, error) {
	if err := domain.ValidDate(date); err != nil {
		return nil, err
	}
	items, err := a.store.ServedItems(ctx, date)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list served items", Err: err}
	}
	return items, nil
}

func (a *Aggregator) PopularItems(ctx context.Context, date string) ([]domain.PopularItem, error) {
	if err := domain.ValidDate(date); err != nil {
		return nil, err
	}
	items, err := a.store.PopularItems(ctx, date)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list popular items", Err: err}
	}
	return items, nil
}

// SubscribeServedItems is a live view of one day's served items, highest
// revenue first.
func (a *Aggregator) SubscribeServedItems(ctx context.Context, date string, handle func([]domain.ServedItem)) (*live.Subscription, error) {
	if err := domain.ValidDate(date); err != nil {
		return nil, err
	}
	fetch := func(ctx context.Context) ([]domain.ServedItem, error) { return a.store.ServedItems(ctx, date) }
	return live.Watch(ctx, a.source, feed.InPartition(feed.ServedItems, date), fetch, handle), nil
}

// SubscribePopularItems is a live view of one day's popular items, highest
// count first.
func (a *Aggregator) SubscribePopularItems(ctx context.Context, date string, handle func([]domain.PopularItem)) (*live.Subscription, error) {
	if err := domain.ValidDate(date); err != nil {
		return nil, err
	}
	fetch := func(ctx context.Context) ([]domain.PopularItem, error) { return a.store.PopularItems(ctx, date) }
	return live.Watch(ctx, a.source, feed.InPartition(feed.PopularItems, date), fetch, handle), nil
}
