package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-orders/internal/common/httpx"
	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/live"
)

type Orders interface {
	ListOrders(ctx context.Context, status domain.Status) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	UpdateETA(ctx context.Context, id string, minutes int) error
	SubscribeActiveOrders(ctx context.Context, handle func([]domain.Order)) *live.Subscription
	SubscribeNewOrders(ctx context.Context, handle func(domain.Order)) *live.Subscription
}

type Reports interface {
	Today() string
	ServedItems(ctx context.Context, date string) ([]domain.ServedItem, error)
	PopularItems(ctx context.Context, date string) ([]domain.PopularItem, error)
	SubscribeServedItems(ctx context.Context, date string, handle func([]domain.ServedItem)) (*live.Subscription, error)
	SubscribePopularItems(ctx context.Context, date string, handle func([]domain.PopularItem)) (*live.Subscription, error)
}

// DevControls back the demo buttons of the kitchen screen. Either may be nil.
type DevControls struct {
	Seed     func(ctx context.Context) error
	Simulate func(ctx context.Context) (string, error)
}

type Handler struct {
	orders  Orders
	reports Reports
	dev     DevControls
	log     *logger.Logger
}

func New(orders Orders, reports Reports, dev DevControls, log *logger.Logger) *Handler {
	return &Handler{orders: orders, reports: reports, dev: dev, log: log}
}

func (h *Handler) Register(r gin.IRouter) {
	k := r.Group("/api/v1/kitchen")
	k.GET("/orders", h.ListOrders)
	k.GET("/orders/stream", h.StreamOrders)
	k.PATCH("/orders/:id/status", h.UpdateStatus)
	k.PATCH("/orders/:id/eta", h.UpdateETA)
	k.GET("/alerts/stream", h.StreamAlerts)

	k.GET("/reports/:date/served", h.ServedItems)
	k.GET("/reports/:date/served/stream", h.StreamServedItems)
	k.GET("/reports/:date/popular", h.PopularItems)
	k.GET("/reports/:date/popular/stream", h.StreamPopularItems)

	k.POST("/dev/seed", h.Seed)
	k.POST("/dev/simulate", h.Simulate)
}

// ListOrders serves the filter tabs: ?status=pending|preparing|ready|served,
// or the whole active queue when status is empty or "all".
func (h *Handler) ListOrders(c *gin.Context) {
	var status domain.Status
	if s := c.Query("status"); s != "" && s != "all" {
		status = domain.Status(s)
	}
	list, err := h.orders.ListOrders(c.Request.Context(), status)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handler) StreamOrders(c *gin.Context) {
	box := httpx.NewLatest[[]domain.Order]()
	sub := h.orders.SubscribeActiveOrders(c.Request.Context(), box.Put)
	defer sub.Stop()
	httpx.Stream(c, "orders", box.C())
}

// StreamAlerts sends one new_order event per order placed while connected.
func (h *Handler) StreamAlerts(c *gin.Context) {
	alerts := make(chan domain.Order, 32)
	sub := h.orders.SubscribeNewOrders(c.Request.Context(), func(o domain.Order) {
		select {
		case alerts <- o:
		default:
			h.log.Warn("alert_dropped", map[string]any{"order_id": o.ID})
		}
	})
	defer sub.Stop()
	httpx.Stream[domain.Order](c, "new_order", alerts)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid JSON body")
		return
	}
	id := c.Param("id")
	if err := h.orders.UpdateStatus(c.Request.Context(), id, domain.Status(req.Status)); err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "status": req.Status})
}

type etaRequest struct {
	Minutes int `json:"minutes"`
}

func (h *Handler) UpdateETA(c *gin.Context) {
	var req etaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid JSON body")
		return
	}
	id := c.Param("id")
	if err := h.orders.UpdateETA(c.Request.Context(), id, req.Minutes); err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "estimated_minutes": req.Minutes})
}

// date resolves the :date path parameter; "today" is the current partition.
func (h *Handler) date(c *gin.Context) string {
	if d := c.Param("date"); d != "today" {
		return d
	}
	return h.reports.Today()
}

func (h *Handler) ServedItems(c *gin.Context) {
	date := h.date(c)
	items, err := h.reports.ServedItems(c.Request.Context(), date)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "items": items})
}

func (h *Handler) PopularItems(c *gin.Context) {
	date := h.date(c)
	items, err := h.reports.PopularItems(c.Request.Context(), date)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "items": items})
}

func (h *Handler) StreamServedItems(c *gin.Context) {
	box := httpx.NewLatest[[]domain.ServedItem]()
	sub, err := h.reports.SubscribeServedItems(c.Request.Context(), h.date(c), box.Put)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	defer sub.Stop()
	httpx.Stream(c, "served_items", box.C())
}

func (h *Handler) StreamPopularItems(c *gin.Context) {
	box := httpx.NewLatest[[]domain.PopularItem]()
	sub, err := h.reports.SubscribePopularItems(c.Request.Context(), h.date(c), box.Put)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	defer sub.Stop()
	httpx.Stream(c, "popular_items", box.C())
}

func (h *Handler) Seed(c *gin.Context) {
	if h.dev.Seed == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "dev controls disabled", "code": httpx.CodeNotFound})
		return
	}
	if err := h.dev.Seed(c.Request.Context()); err != nil {
		h.log.Error("seed_failed", err, nil)
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"seeded": true})
}

func (h *Handler) Simulate(c *gin.Context) {
	if h.dev.Simulate == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "dev controls disabled", "code": httpx.CodeNotFound})
		return
	}
	id, err := h.dev.Simulate(c.Request.Context())
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order_id": id})
}
