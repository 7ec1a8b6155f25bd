package orders

import (
	"context"
	"errors"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/feed"
	"restaurant-orders/internal/live"
	"restaurant-orders/internal/store"
)

type lookup struct {
	order domain.Order
	found bool
}

// SubscribeActiveOrders delivers the kitchen queue, oldest first, on start and
// after every order change.
func (r *Repository) SubscribeActiveOrders(ctx context.Context, handle func([]domain.Order)) *live.Subscription {
	fetch := func(ctx context.Context) ([]domain.Order, error) { return r.find(ctx, store.Active()) }
	return live.Watch(ctx, r.source, feed.InCollection(feed.Orders), fetch, handle)
}

// SubscribeOrderByID follows one order. found is false while it does not exist.
func (r *Repository) SubscribeOrderByID(ctx context.Context, id string, handle func(o domain.Order, found bool)) *live.Subscription {
	fetch := func(ctx context.Context) (lookup, error) {
		cctx, cancel := r.callCtx(ctx)
		defer cancel()
		o, err := r.store.GetOrder(cctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return lookup{}, nil
		}
		if err != nil {
			return lookup{}, err
		}
		return lookup{order: o, found: true}, nil
	}
	return live.Watch(ctx, r.source, feed.Document(feed.Orders, id), fetch,
		func(l lookup) { handle(l.order, l.found) })
}

// SubscribeOrderByTable follows the newest unserved order at a table.
func (r *Repository) SubscribeOrderByTable(ctx context.Context, table int, handle func(o domain.Order, found bool)) *live.Subscription {
	q := store.Active()
	q.TableNumber = table
	q.NewestFirst = true
	q.Limit = 1
	fetch := func(ctx context.Context) (lookup, error) {
		out, err := r.find(ctx, q)
		if err != nil || len(out) == 0 {
			return lookup{}, err
		}
		return lookup{order: out[0], found: true}, nil
	}
	return live.Watch(ctx, r.source, feed.InCollection(feed.Orders), fetch,
		func(l lookup) { handle(l.order, l.found) })
}

// SubscribeNewOrders calls handle once for every order that enters the
// active queue after the subscription started. The active set is diffed
// rather than the pending one, so an order already moved to preparing by the
// next refetch still raises its alert. If the first fetch fails, orders created
// after subscribing are reported once a fetch succeeds.
//
// Deliveries coalesce: an order that is created and served between two
// refetches is never seen and raises no alert.
func (r *Repository) SubscribeNewOrders(ctx context.Context, handle func(domain.Order)) *live.Subscription {
	var (
		seen   map[string]struct{}
		primed bool
		since  = r.clock.Now()
	)
	fetch := func(ctx context.Context) ([]domain.Order, error) {
		return r.find(ctx, store.Active())
	}
	return live.Watch(ctx, r.source, feed.InCollection(feed.Orders), fetch, func(active []domain.Order) {
		next := make(map[string]struct{}, len(active))
		for _, o := range active {
			next[o.ID] = struct{}{}
			if _, ok := seen[o.ID]; ok {
				continue
			}
			if primed || o.CreatedAt.After(since) {
				handle(o)
			}
		}
		seen, primed = next, true
	})
}
