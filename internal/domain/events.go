package domain

import "time"

const (
	EventOrderCreated  = "order.created"
	EventStatusChanged = "order.status_changed"
	EventETAUpdated    = "order.eta_updated"
)

// OrderEvent is published to the notifications exchange after a successful write.
type OrderEvent struct {
	Type             string    `json:"type"`
	OrderID          string    `json:"order_id"`
	TableNumber      int       `json:"table_number,omitempty"`
	OldStatus        Status    `json:"old_status,omitempty"`
	NewStatus        Status    `json:"new_status,omitempty"`
	EstimatedMinutes int       `json:"estimated_minutes,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}
