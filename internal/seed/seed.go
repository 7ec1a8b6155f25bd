// Package seed fills a store with demo data and places simulated orders.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/store"
)

type MenuItem struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

var Menu = []MenuItem{
	{ID: "item_chicken", Name: "Grilled Chicken", Price: decimal.RequireFromString("22.99")},
	{ID: "item_burger", Name: "Beef Burger", Price: decimal.RequireFromString("16.99")},
	{ID: "item_salad", Name: "Caesar Salad", Price: decimal.RequireFromString("12.99")},
	{ID: "item_tacos", Name: "Fish Tacos", Price: decimal.RequireFromString("18.99")},
	{ID: "item_pasta", Name: "Pasta Carbonara", Price: decimal.RequireFromString("19.99")},
	{ID: "item_pizza", Name: "Margherita Pizza", Price: decimal.RequireFromString("17.99")},
}

type sample struct {
	table    int
	status   domain.Status
	age      time.Duration
	eta      int
	etaAge   time.Duration
	customer string
	notes    string
	items    []domain.OrderItem
}

func line(id, name, price string, qty int) domain.OrderItem {
	return domain.OrderItem{ID: id, Name: name, Price: decimal.RequireFromString(price), Quantity: qty}
}

var samples = []sample{
	{table: 12, status: domain.StatusPending, age: 5 * time.Minute, eta: 15, etaAge: 2 * time.Minute,
		customer: "John Smith", notes: "Extra lemon on the salmon, dressing on the side",
		items: []domain.OrderItem{
			line("item_salmon", "Grilled Salmon", "24.99", 1),
			line("item_caesar", "Caesar Salad", "12.99", 1),
			line("item_bread", "Garlic Bread", "7.99", 1),
		}},
	{table: 8, status: domain.StatusPreparing, age: 12 * time.Minute, eta: 8, etaAge: 5 * time.Minute,
		customer: "Maria Garcia", notes: "Medium rare steak",
		items: []domain.OrderItem{
			line("item_ribeye", "Ribeye Steak", "39.99", 1),
			line("item_bisque", "Lobster Bisque", "16.99", 1),
			line("item_veg", "Roasted Vegetables", "10.99", 1),
		}},
	{table: 15, status: domain.StatusReady, age: 18 * time.Minute, customer: "David Wilson",
		items: []domain.OrderItem{
			line("item_margherita", "Margherita Pizza", "18.99", 1),
			line("item_wings", "Buffalo Wings", "13.98", 1),
		}},
	{table: 3, status: domain.StatusPending, age: 2 * time.Minute, customer: "Sarah Johnson",
		items: []domain.OrderItem{
			line("item_fish", "Fish and Chips", "19.99", 1),
			line("item_coleslaw", "Coleslaw", "5.99", 1),
			line("item_tea", "Iced Tea", "2.99", 1),
		}},
	{table: 7, status: domain.StatusPreparing, age: 8 * time.Minute, eta: 12, etaAge: 3 * time.Minute,
		customer: "Mike Brown", notes: "Gluten-free pasta for one serving",
		items: []domain.OrderItem{
			line("item_parmesan", "Chicken Parmesan", "22.99", 2),
			line("item_tiramisu", "Tiramisu", "6.99", 1),
		}},
}

// InitializeMockData writes the sample orders, backdated relative to now,
// plus a few served-item and popular-item rows for today's partition.
// It returns the IDs of the orders it created.
func InitializeMockData(ctx context.Context, orders store.OrderStore, reports store.ReportStore, now time.Time, loc *time.Location) ([]string, error) {
	ids := make([]string, 0, len(samples))
	for _, s := range samples {
		o, err := domain.NewOrder(domain.OrderInput{
			TableNumber: s.table, Items: s.items, CustomerName: s.customer, SpecialInstructions: s.notes,
		}, now.Add(-s.age))
		if err != nil {
			return ids, fmt.Errorf("build sample for table %d: %w", s.table, err)
		}
		id, err := orders.InsertOrder(ctx, o)
		if err != nil {
			return ids, fmt.Errorf("insert sample for table %d: %w", s.table, err)
		}
		ids = append(ids, id)

		if s.status != domain.StatusPending {
			if err := orders.SetStatus(ctx, id, s.status, now.Add(-s.age/2)); err != nil {
				return ids, fmt.Errorf("set sample status: %w", err)
			}
		}
		if s.eta > 0 {
			if err := orders.SetETA(ctx, id, s.eta, now.Add(-s.etaAge)); err != nil {
				return ids, fmt.Errorf("set sample eta: %w", err)
			}
		}
	}

	date := domain.DatePartition(now, loc)
	for _, m := range Menu[:3] {
		if err := reports.IncrementServed(ctx, date, m.Name, 3, m.Price.Mul(decimal.NewFromInt(3))); err != nil {
			return ids, fmt.Errorf("seed served items: %w", err)
		}
		if err := reports.IncrementPopular(ctx, date, m.ID, m.Name, 3); err != nil {
			return ids, fmt.Errorf("seed popular items: %w", err)
		}
	}
	return ids, nil
}

// Creator places orders. *orders.Repository satisfies it.
type Creator interface {
	CreateOrder(ctx context.Context, in domain.OrderInput) (string, error)
}

// SimulateNewOrder places one order of 1 to 3 units of a random menu item
// at a random table between 1 and 20.
func SimulateNewOrder(ctx context.Context, c Creator, rnd *rand.Rand) (string, error) {
	m := Menu[rnd.Intn(len(Menu))]
	in := domain.OrderInput{
		TableNumber:  rnd.Intn(20) + 1,
		CustomerName: "New Customer",
		Items:        []domain.OrderItem{{ID: m.ID, Name: m.Name, Price: m.Price, Quantity: rnd.Intn(3) + 1}},
	}
	return c.CreateOrder(ctx, in)
}
