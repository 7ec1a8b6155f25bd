// Package memory is an in-process backing store. It is used by tests and by
// the "memory" store mode of the binary.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/feed"
	"restaurant-orders/internal/store"
)

type Store struct {
	mu      sync.RWMutex
	seq     int
	orders  map[string]*record
	history map[string][]domain.StatusChange
	served  map[string]map[string]*domain.ServedItem
	popular map[string]map[string]*domain.PopularItem

	changes feed.Publisher
}

type record struct {
	seq   int
	order domain.Order
}

var (
	_ store.OrderStore  = (*Store)(nil)
	_ store.ReportStore = (*Store)(nil)
)

// New returns an empty store that announces every write on changes. A nil
// publisher disables change announcements.
func New(changes feed.Publisher) *Store {
	return &Store{
		orders:  make(map[string]*record),
		history: make(map[string][]domain.StatusChange),
		served:  make(map[string]map[string]*domain.ServedItem),
		popular: make(map[string]map[string]*domain.PopularItem),
		changes: changes,
	}
}

func (s *Store) announce(ctx context.Context, c feed.Change) {
	if s.changes != nil {
		_ = s.changes.Publish(ctx, c)
	}
}

func (s *Store) InsertOrder(ctx context.Context, o domain.Order) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	o = clone(o)
	o.ID = uuid.NewString()

	s.mu.Lock()
	s.seq++
	s.orders[o.ID] = &record{seq: s.seq, order: o}
	s.history[o.ID] = append(s.history[o.ID], domain.StatusChange{OrderID: o.ID, Status: o.Status, ChangedAt: o.CreatedAt})
	s.mu.Unlock()

	s.announce(ctx, feed.Change{Collection: feed.Orders, Key: o.ID, Op: "INSERT"})
	return o.ID, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return clone(r.order), nil
}

func (s *Store) FindOrders(ctx context.Context, q store.OrderQuery) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	matched := make([]*record, 0, len(s.orders))
	for _, r := range s.orders {
		if q.Matches(r.order) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.order.CreatedAt.Equal(b.order.CreatedAt) {
			if q.NewestFirst {
				return a.order.CreatedAt.After(b.order.CreatedAt)
			}
			return a.order.CreatedAt.Before(b.order.CreatedAt)
		}
		if q.NewestFirst {
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	out := make([]domain.Order, 0, len(matched))
	for _, r := range matched {
		out = append(out, clone(r.order))
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *Store) SetStatus(ctx context.Context, id string, status domain.Status, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	r, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	r.order.Status = status
	s.history[id] = append(s.history[id], domain.StatusChange{OrderID: id, Status: status, ChangedAt: at})
	s.mu.Unlock()

	s.announce(ctx, feed.Change{Collection: feed.Orders, Key: id, Op: "UPDATE"})
	return nil
}

func (s *Store) SetETA(ctx context.Context, id string, minutes int, setAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	r, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	m, at := minutes, setAt
	r.order.EstimatedMinutes, r.order.ETASetAt = &m, &at
	s.mu.Unlock()

	s.announce(ctx, feed.Change{Collection: feed.Orders, Key: id, Op: "UPDATE"})
	return nil
}

func (s *Store) StatusHistory(ctx context.Context, id string) ([]domain.StatusChange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.orders[id]; !ok {
		return nil, domain.ErrNotFound
	}
	return append([]domain.StatusChange(nil), s.history[id]...), nil
}

func (s *Store) IncrementServed(ctx context.Context, date, name string, quantity int, revenue decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	part, ok := s.served[date]
	if !ok {
		part = make(map[string]*domain.ServedItem)
		s.served[date] = part
	}
	it, ok := part[name]
	if !ok {
		it = &domain.ServedItem{ItemName: name, Date: date, TotalRevenue: decimal.Zero}
		part[name] = it
	}
	it.QuantityServed += quantity
	it.TotalRevenue = it.TotalRevenue.Add(revenue)
	s.mu.Unlock()

	s.announce(ctx, feed.Change{Collection: feed.ServedItems, Key: name, Partition: date, Op: "UPSERT"})
	return nil
}

func (s *Store) IncrementPopular(ctx context.Context, date, itemID, name string, count int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	part, ok := s.popular[date]
	if !ok {
		part = make(map[string]*domain.PopularItem)
		s.popular[date] = part
	}
	it, ok := part[itemID]
	if !ok {
		it = &domain.PopularItem{ItemID: itemID, Date: date}
		part[itemID] = it
	}
	it.ItemName = name
	it.OrderCount += count
	s.mu.Unlock()

	s.announce(ctx, feed.Change{Collection: feed.PopularItems, Key: itemID, Partition: date, Op: "UPSERT"})
	return nil
}

func (s *Store) ServedItems(ctx context.Context, date string) ([]domain.ServedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]domain.ServedItem, 0, len(s.served[date]))
	for _, it := range s.served[date] {
		out = append(out, *it)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalRevenue.Cmp(out[j].TotalRevenue); c != 0 {
			return c > 0
		}
		return out[i].ItemName < out[j].ItemName
	})
	return out, nil
}

func (s *Store) PopularItems(ctx context.Context, date string) ([]domain.PopularItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]domain.PopularItem, 0, len(s.popular[date]))
	for _, it := range s.popular[date] {
		out = append(out, *it)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderCount != out[j].OrderCount {
			return out[i].OrderCount > out[j].OrderCount
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out, nil
}

func clone(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	if o.EstimatedMinutes != nil {
		m := *o.EstimatedMinutes
		o.EstimatedMinutes = &m
	}
	if o.ETASetAt != nil {
		at := *o.ETASetAt
		o.ETASetAt = &at
	}
	return o
}
