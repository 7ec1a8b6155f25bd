package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinTableNumber = 1
	MaxTableNumber = 50

	// PriceScale is the number of decimal places a price may carry. It matches
	// the NUMERIC(12,2) price and total columns.
	PriceScale = 2
)

// ValidPrice reports whether p is non-negative and has no digits past
// PriceScale. Trailing zeros such as 12.500 are fine.
func ValidPrice(p decimal.Decimal) bool {
	return !p.IsNegative() && p.Equal(p.Round(PriceScale))
}

type Order struct {
	ID                  string          `json:"id"`
	TableNumber         int             `json:"table_number"`
	Items               []OrderItem     `json:"items"`
	Status              Status          `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
	EstimatedMinutes    *int            `json:"estimated_minutes,omitempty"`
	ETASetAt            *time.Time      `json:"eta_set_at,omitempty"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	CustomerName        string          `json:"customer_name,omitempty"`
}

type OrderItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Notes    string          `json:"notes,omitempty"`
}

// LineTotal is price × quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderInput is what a customer submits. Any total the caller computed is not
// part of it: the total is always derived from the items.
type OrderInput struct {
	TableNumber         int         `json:"table_number"`
	Items               []OrderItem `json:"items"`
	CustomerName        string      `json:"customer_name,omitempty"`
	SpecialInstructions string      `json:"special_instructions,omitempty"`
}

// NewOrder validates in and returns a pending order without an ID.
func NewOrder(in OrderInput, now time.Time) (Order, error) {
	if in.TableNumber < MinTableNumber || in.TableNumber > MaxTableNumber {
		return Order{}, Invalid("table_number", "must be between 1 and 50")
	}
	if len(in.Items) == 0 {
		return Order{}, Invalid("items", "at least one item is required")
	}

	items := make([]OrderItem, 0, len(in.Items))
	total := decimal.Zero
	for _, it := range in.Items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			return Order{}, Invalid("items.name", "item name is required")
		}
		if it.Quantity < 1 {
			return Order{}, Invalid("items.quantity", "invalid quantity for item "+it.Name)
		}
		if !ValidPrice(it.Price) {
			return Order{}, Invalid("items.price", "invalid price for item "+it.Name)
		}
		if strings.TrimSpace(it.ID) == "" {
			it.ID = it.Name
		}
		total = total.Add(it.LineTotal())
		items = append(items, it)
	}

	return Order{
		TableNumber:         in.TableNumber,
		Items:               items,
		Status:              StatusPending,
		CreatedAt:           now,
		TotalAmount:         total,
		CustomerName:        strings.TrimSpace(in.CustomerName),
		SpecialInstructions: strings.TrimSpace(in.SpecialInstructions),
	}, nil
}

// StatusChange is one entry of an order's status log.
type StatusChange struct {
	OrderID   string    `json:"order_id"`
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
}
