package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"restaurant-orders/internal/domain"
)

// Each increment is a single upsert statement so concurrent completions of
// orders containing the same item add up instead of overwriting each other.

func (s *Store) IncrementServed(ctx context.Context, date, name string, quantity int, revenue decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO served_items (report_date, item_name, quantity_served, total_revenue)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (report_date, item_name) DO UPDATE SET
		    quantity_served = served_items.quantity_served + EXCLUDED.quantity_served,
		    total_revenue   = served_items.total_revenue + EXCLUDED.total_revenue`,
		date, name, quantity, revenue)
	if err != nil {
		return fmt.Errorf("increment served item %s: %w", name, err)
	}
	return nil
}

func (s *Store) IncrementPopular(ctx context.Context, date, itemID, name string, count int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO popular_items (report_date, item_id, item_name, order_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (report_date, item_id) DO UPDATE SET
		    item_name   = EXCLUDED.item_name,
		    order_count = popular_items.order_count + EXCLUDED.order_count`,
		date, itemID, name, count)
	if err != nil {
		return fmt.Errorf("increment popular item %s: %w", itemID, err)
	}
	return nil
}

func (s *Store) ServedItems(ctx context.Context, date string) ([]domain.ServedItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_name, report_date, quantity_served, total_revenue
		FROM served_items WHERE report_date = $1
		ORDER BY total_revenue DESC, item_name`, date)
	if err != nil {
		return nil, fmt.Errorf("list served items: %w", err)
	}
	defer rows.Close()

	out := []domain.ServedItem{}
	for rows.Next() {
		var it domain.ServedItem
		if err := rows.Scan(&it.ItemName, &it.Date, &it.QuantityServed, &it.TotalRevenue); err != nil {
			return nil, fmt.Errorf("scan served item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) PopularItems(ctx context.Context, date string) ([]domain.PopularItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, item_name, report_date, order_count
		FROM popular_items WHERE report_date = $1
		ORDER BY order_count DESC, item_id`, date)
	if err != nil {
		return nil, fmt.Errorf("list popular items: %w", err)
	}
	defer rows.Close()

	out := []domain.PopularItem{}
	for rows.Next() {
		var it domain.PopularItem
		if err := rows.Scan(&it.ItemID, &it.ItemName, &it.Date, &it.OrderCount); err != nil {
			return nil, fmt.Errorf("scan popular item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
