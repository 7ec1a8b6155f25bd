package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"restaurant-orders/internal/common/httpx"
	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/live"
)

type Orders interface {
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	Timeline(ctx context.Context, id string) ([]domain.StatusChange, error)
	RemainingETA(o domain.Order) (int, bool)
	SubscribeOrderByID(ctx context.Context, id string, handle func(domain.Order, bool)) *live.Subscription
	SubscribeOrderByTable(ctx context.Context, table int, handle func(domain.Order, bool)) *live.Subscription
}

type Handler struct {
	orders Orders
}

func New(orders Orders) *Handler {
	return &Handler{orders: orders}
}

func (h *Handler) Register(r gin.IRouter) {
	t := r.Group("/api/v1/tracking")
	t.GET("/orders/:id/status", h.GetStatus)
	t.GET("/orders/:id/timeline", h.GetTimeline)
	t.GET("/orders/:id/stream", h.StreamOrder)
	t.GET("/tables/:table/stream", h.StreamTable)
}

type statusView struct {
	OrderID          string             `json:"order_id"`
	TableNumber      int                `json:"table_number"`
	Status           domain.Status      `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	Items            []domain.OrderItem `json:"items"`
	TotalAmount      decimal.Decimal    `json:"total_amount"`
	EstimatedMinutes *int               `json:"estimated_minutes,omitempty"`
	RemainingMinutes *int               `json:"remaining_minutes,omitempty"`
	CustomerName     string             `json:"customer_name,omitempty"`
}

func (h *Handler) view(o domain.Order) statusView {
	v := statusView{
		OrderID:          o.ID,
		TableNumber:      o.TableNumber,
		Status:           o.Status,
		CreatedAt:        o.CreatedAt,
		Items:            o.Items,
		TotalAmount:      o.TotalAmount,
		EstimatedMinutes: o.EstimatedMinutes,
		CustomerName:     o.CustomerName,
	}
	if left, ok := h.orders.RemainingETA(o); ok {
		v.RemainingMinutes = &left
	}
	return v
}

// tracked is one stream event. Order is nil while nothing is found.
type tracked struct {
	Found bool        `json:"found"`
	Order *statusView `json:"order,omitempty"`
}

func (h *Handler) GetStatus(c *gin.Context) {
	o, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(o))
}

func (h *Handler) GetTimeline(c *gin.Context) {
	id := c.Param("id")
	events, err := h.orders.Timeline(c.Request.Context(), id)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "events": events})
}

func (h *Handler) StreamOrder(c *gin.Context) {
	box := httpx.NewLatest[tracked]()
	sub := h.orders.SubscribeOrderByID(c.Request.Context(), c.Param("id"), h.publishTo(box))
	defer sub.Stop()
	httpx.Stream(c, "order", box.C())
}

func (h *Handler) StreamTable(c *gin.Context) {
	table, err := strconv.Atoi(c.Param("table"))
	if err != nil || table < domain.MinTableNumber || table > domain.MaxTableNumber {
		httpx.BadRequest(c, "table must be a number between 1 and 50")
		return
	}
	box := httpx.NewLatest[tracked]()
	sub := h.orders.SubscribeOrderByTable(c.Request.Context(), table, h.publishTo(box))
	defer sub.Stop()
	httpx.Stream(c, "order", box.C())
}

func (h *Handler) publishTo(box *httpx.Latest[tracked]) func(domain.Order, bool) {
	return func(o domain.Order, found bool) {
		if !found {
			box.Put(tracked{})
			return
		}
		v := h.view(o)
		box.Put(tracked{Found: true, Order: &v})
	}
}
