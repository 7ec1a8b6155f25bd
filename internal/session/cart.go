// Package session holds per-customer cart state for the order service.
package session

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"restaurant-orders/internal/domain"
)

// Cart is the ordering state of one session. It is safe for concurrent use.
type Cart struct {
	mu    sync.Mutex
	items []domain.OrderItem
}

func NewCart() *Cart { return &Cart{} }

// Add puts it in the cart. An item already present (same ID, or same name
// when no ID is given) gets its quantity increased instead.
func (c *Cart) Add(it domain.OrderItem) error {
	it.Name = strings.TrimSpace(it.Name)
	if it.Name == "" {
		return domain.Invalid("name", "item name is required")
	}
	if !domain.ValidPrice(it.Price) {
		return domain.Invalid("price", "must be non-negative with at most two decimals")
	}
	if it.Quantity <= 0 {
		it.Quantity = 1
	}
	if strings.TrimSpace(it.ID) == "" {
		it.ID = it.Name
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == it.ID {
			c.items[i].Quantity += it.Quantity
			return nil
		}
	}
	c.items = append(c.items, it)
	return nil
}

// UpdateQuantity sets the quantity of an item. Zero or less removes it.
func (c *Cart) UpdateQuantity(id string, quantity int) error {
	if quantity <= 0 {
		return c.Remove(id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Quantity = quantity
			return nil
		}
	}
	return domain.ErrNotFound
}

func (c *Cart) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

func (c *Cart) Items() []domain.OrderItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.OrderItem{}, c.items...)
}

func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Count is the number of units, not of distinct items.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Checkout turns the cart into an order input. The cart is left untouched;
// callers clear it once the order has been stored.
func (c *Cart) Checkout(table int, customer, instructions string) (domain.OrderInput, error) {
	items := c.Items()
	if len(items) == 0 {
		return domain.OrderInput{}, domain.Invalid("items", "cart is empty")
	}
	return domain.OrderInput{
		TableNumber:         table,
		Items:               items,
		CustomerName:        customer,
		SpecialInstructions: instructions,
	}, nil
}
