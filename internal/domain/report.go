package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type ServedItem struct {
	ItemName       string          `json:"item_name"`
	Date           string          `json:"date"`
	QuantityServed int             `json:"quantity_served"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
}

type PopularItem struct {
	ItemID     string `json:"item_id"`
	ItemName   string `json:"item_name"`
	Date       string `json:"date"`
	OrderCount int    `json:"order_count"`
}

// DatePartition is the report day of t in loc.
func DatePartition(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(dateLayout)
}

func ValidDate(v string) error {
	if _, err := time.Parse(dateLayout, v); err != nil {
		return Invalid("date", "expected YYYY-MM-DD")
	}
	return nil
}
