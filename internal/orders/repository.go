// Package orders is the order repository: validated writes against the
// backing store and live queries over it.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-orders/internal/clock"
	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/events"
	"restaurant-orders/internal/feed"
	"restaurant-orders/internal/store"
)

const DefaultTimeout = 10 * time.Second

// Recorder is run when an order becomes served.
type Recorder interface {
	Record(ctx context.Context, o domain.Order)
}

type Options struct {
	Clock  clock.Clock
	Events events.Publisher
	Policy domain.TransitionPolicy
	// Timeout bounds every backing store call. Negative disables it.
	Timeout time.Duration
	Logger  *logger.Logger
}

type Repository struct {
	store   store.OrderStore
	source  feed.Source
	reports Recorder

	clock   clock.Clock
	events  events.Publisher
	policy  domain.TransitionPolicy
	timeout time.Duration
	log     *logger.Logger
}

func New(st store.OrderStore, src feed.Source, reports Recorder, opts Options) *Repository {
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem()
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.Policy == "" {
		opts.Policy = domain.PolicyForward
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.New("orders")
	}
	return &Repository{
		store:   st,
		source:  src,
		reports: reports,
		clock:   opts.Clock,
		events:  opts.Events,
		policy:  opts.Policy,
		timeout: opts.Timeout,
		log:     opts.Logger,
	}
}

func (r *Repository) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout < 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func wrap(op, id string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return &domain.PersistenceError{Op: op, Err: err}
}

func (r *Repository) publish(ctx context.Context, e domain.OrderEvent) {
	e.Timestamp = r.clock.Now()
	pctx, cancel := r.callCtx(context.WithoutCancel(ctx))
	defer cancel()
	if err := r.events.PublishOrderEvent(pctx, e); err != nil {
		r.log.Error("event_publish_failed", err, map[string]any{"order_id": e.OrderID, "type": e.Type})
	}
}

// CreateOrder validates in, stores it as one pending order and returns the
// new ID. Calling it twice creates two orders.
func (r *Repository) CreateOrder(ctx context.Context, in domain.OrderInput) (string, error) {
	o, err := domain.NewOrder(in, r.clock.Now())
	if err != nil {
		return "", err
	}

	cctx, cancel := r.callCtx(ctx)
	id, err := r.store.InsertOrder(cctx, o)
	cancel()
	if err != nil {
		return "", &domain.PersistenceError{Op: "create order", Err: err}
	}

	r.log.Info("order_created", map[string]any{
		"order_id": id, "table_number": o.TableNumber, "total_amount": o.TotalAmount.StringFixed(2),
	})
	r.publish(ctx, domain.OrderEvent{Type: domain.EventOrderCreated, OrderID: id, TableNumber: o.TableNumber, NewStatus: o.Status})
	return id, nil
}

// UpdateStatus moves an order to status. Moving into served records the
// order in the daily reports first; report failures are logged only.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	if !status.Valid() {
		return domain.Invalid("status", fmt.Sprintf("unknown status %q", status))
	}

	cctx, cancel := r.callCtx(ctx)
	o, err := r.store.GetOrder(cctx, id)
	cancel()
	if err != nil {
		return wrap("get order", id, err)
	}
	if err := r.policy.Check(o.Status, status); err != nil {
		return err
	}

	if status == domain.StatusServed && r.reports != nil {
		actx, cancel := r.callCtx(ctx)
		r.reports.Record(actx, o)
		cancel()
	}

	now := r.clock.Now()
	cctx, cancel = r.callCtx(ctx)
	err = r.store.SetStatus(cctx, id, status, now)
	cancel()
	if err != nil {
		return wrap("update status", id, err)
	}

	r.log.Info("order_status_updated", map[string]any{"order_id": id, "old_status": o.Status, "new_status": status})
	r.publish(ctx, domain.OrderEvent{
		Type: domain.EventStatusChanged, OrderID: id, TableNumber: o.TableNumber,
		OldStatus: o.Status, NewStatus: status,
	})
	return nil
}

// UpdateETA sets the estimate and restarts the countdown from now.
func (r *Repository) UpdateETA(ctx context.Context, id string, minutes int) error {
	if err := domain.ValidateETA(minutes); err != nil {
		return err
	}

	cctx, cancel := r.callCtx(ctx)
	err := r.store.SetETA(cctx, id, minutes, r.clock.Now())
	cancel()
	if err != nil {
		return wrap("update eta", id, err)
	}

	r.log.Info("order_eta_updated", map[string]any{"order_id": id, "estimated_minutes": minutes})
	r.publish(ctx, domain.OrderEvent{Type: domain.EventETAUpdated, OrderID: id, EstimatedMinutes: minutes})
	return nil
}

func (r *Repository) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	cctx, cancel := r.callCtx(ctx)
	defer cancel()
	o, err := r.store.GetOrder(cctx, id)
	if err != nil {
		return domain.Order{}, wrap("get order", id, err)
	}
	return o, nil
}

// ListOrders returns orders in one status, or the whole active queue when
// status is empty.
func (r *Repository) ListOrders(ctx context.Context, status domain.Status) ([]domain.Order, error) {
	q := store.Active()
	if status != "" {
		if !status.Valid() {
			return nil, domain.Invalid("status", fmt.Sprintf("unknown status %q", status))
		}
		q = store.OrderQuery{Status: status}
	}
	out, err := r.find(ctx, q)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list orders", Err: err}
	}
	return out, nil
}

func (r *Repository) Timeline(ctx context.Context, id string) ([]domain.StatusChange, error) {
	cctx, cancel := r.callCtx(ctx)
	defer cancel()
	h, err := r.store.StatusHistory(cctx, id)
	if err != nil {
		return nil, wrap("status history", id, err)
	}
	return h, nil
}

// RemainingETA is o's countdown at the repository's current time.
func (r *Repository) RemainingETA(o domain.Order) (int, bool) {
	return o.RemainingETA(r.clock.Now())
}

func (r *Repository) find(ctx context.Context, q store.OrderQuery) ([]domain.Order, error) {
	cctx, cancel := r.callCtx(ctx)
	defer cancel()
	out, err := r.store.FindOrders(cctx, q)
	if out == nil && err == nil {
		out = []domain.Order{}
	}
	return out, err
}
