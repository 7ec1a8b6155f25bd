// Package postgres implements the backing store on PostgreSQL through
// database/sql and the pgx driver. Change notifications come from the table
// triggers installed by the migrations, not from this package.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/store"
)

type Store struct {
	db *sql.DB
}

var (
	_ store.OrderStore  = (*Store)(nil)
	_ store.ReportStore = (*Store)(nil)
)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectOrder = `
SELECT o.id, o.table_number, o.status, o.created_at, o.estimated_minutes, o.eta_set_at,
       o.total_amount, o.customer_name, o.special_instructions,
       COALESCE((
           SELECT json_agg(json_build_object(
                      'id', i.item_id, 'name', i.name, 'price', i.price,
                      'quantity', i.quantity, 'notes', i.notes) ORDER BY i.position)
           FROM order_items i WHERE i.order_id = o.id
       ), '[]'::json)
FROM orders o`

func (s *Store) InsertOrder(ctx context.Context, o domain.Order) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO orders
		    (id, table_number, status, created_at, total_amount, customer_name, special_instructions, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $4)`,
		id, o.TableNumber, string(o.Status), o.CreatedAt, o.TotalAmount, o.CustomerName, o.SpecialInstructions,
	); err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}

	for pos, it := range o.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, item_id, name, price, quantity, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, pos, it.ID, it.Name, it.Price, it.Quantity, it.Notes,
		); err != nil {
			return "", fmt.Errorf("insert order item %s: %w", it.Name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_at) VALUES ($1, $2, $3)`,
		id, string(o.Status), o.CreatedAt,
	); err != nil {
		return "", fmt.Errorf("insert order status log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}
	return id, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, selectOrder+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (s *Store) FindOrders(ctx context.Context, q store.OrderQuery) ([]domain.Order, error) {
	query, args := buildFind(q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func buildFind(q store.OrderQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if q.Status != "" {
		add("o.status = $%d", string(q.Status))
	}
	if q.ExcludeStatus != "" {
		add("o.status <> $%d", string(q.ExcludeStatus))
	}
	if q.TableNumber != 0 {
		add("o.table_number = $%d", q.TableNumber)
	}

	var b strings.Builder
	b.WriteString(selectOrder)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	if q.NewestFirst {
		b.WriteString(" ORDER BY o.created_at DESC, o.id")
	} else {
		b.WriteString(" ORDER BY o.created_at ASC, o.id")
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

func (s *Store) SetStatus(ctx context.Context, id string, status domain.Status, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_at) VALUES ($1, $2, $3)`,
		id, string(status), at,
	); err != nil {
		return fmt.Errorf("insert order status log: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) SetETA(ctx context.Context, id string, minutes int, setAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET estimated_minutes = $2, eta_set_at = $3, updated_at = $3 WHERE id = $1`,
		id, minutes, setAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update order eta: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) StatusHistory(ctx context.Context, id string) ([]domain.StatusChange, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("check order: %w", err)
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, changed_at FROM order_status_log WHERE order_id = $1 ORDER BY changed_at ASC, id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("get status log: %w", err)
	}
	defer rows.Close()

	var out []domain.StatusChange
	for rows.Next() {
		c := domain.StatusChange{OrderID: id}
		var status string
		if err := rows.Scan(&status, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status log: %w", err)
		}
		c.Status = domain.Status(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o        domain.Order
		status   string
		minutes  sql.NullInt32
		etaSetAt sql.NullTime
		items    []byte
	)
	if err := row.Scan(&o.ID, &o.TableNumber, &status, &o.CreatedAt, &minutes, &etaSetAt,
		&o.TotalAmount, &o.CustomerName, &o.SpecialInstructions, &items); err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.Status(status)
	if minutes.Valid {
		m := int(minutes.Int32)
		o.EstimatedMinutes = &m
	}
	if etaSetAt.Valid {
		at := etaSetAt.Time
		o.ETASetAt = &at
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return domain.Order{}, fmt.Errorf("decode items: %w", err)
	}
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	return o, nil
}

func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

