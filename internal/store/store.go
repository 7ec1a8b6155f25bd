// Package store defines the backing store contract the order repository and
// report aggregator are written against.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-orders/internal/domain"
)

// OrderQuery selects orders. Zero values mean "no constraint".
type OrderQuery struct {
	Status        domain.Status
	ExcludeStatus domain.Status
	TableNumber   int
	NewestFirst   bool
	Limit         int
}

// Active is the kitchen queue: every order not yet served, oldest first.
func Active() OrderQuery {
	return OrderQuery{ExcludeStatus: domain.StatusServed}
}

// Matches reports whether o satisfies the filter part of q.
func (q OrderQuery) Matches(o domain.Order) bool {
	if q.Status != "" && o.Status != q.Status {
		return false
	}
	if q.ExcludeStatus != "" && o.Status == q.ExcludeStatus {
		return false
	}
	if q.TableNumber != 0 && o.TableNumber != q.TableNumber {
		return false
	}
	return true
}

type OrderStore interface {
	// InsertOrder stores o as one document and returns the assigned ID.
	InsertOrder(ctx context.Context, o domain.Order) (string, error)
	// GetOrder returns domain.ErrNotFound for unknown IDs.
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	FindOrders(ctx context.Context, q OrderQuery) ([]domain.Order, error)
	SetStatus(ctx context.Context, id string, status domain.Status, at time.Time) error
	SetETA(ctx context.Context, id string, minutes int, setAt time.Time) error
	StatusHistory(ctx context.Context, id string) ([]domain.StatusChange, error)
}

type ReportStore interface {
	// IncrementServed adds to the served-item record for (date, name),
	// creating it when absent, in one atomic operation.
	IncrementServed(ctx context.Context, date, name string, quantity int, revenue decimal.Decimal) error
	// IncrementPopular adds to the popular-item record for (date, itemID).
	IncrementPopular(ctx context.Context, date, itemID, name string, count int) error
	// ServedItems lists a date partition by revenue, highest first.
	ServedItems(ctx context.Context, date string) ([]domain.ServedItem, error)
	// PopularItems lists a date partition by order count, highest first.
	PopularItems(ctx context.Context, date string) ([]domain.PopularItem, error)
}
