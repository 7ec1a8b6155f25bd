package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"restaurant-orders/internal/common/httpx"
	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/session"
)

type Orders interface {
	CreateOrder(ctx context.Context, in domain.OrderInput) (string, error)
}

type Handler struct {
	orders   Orders
	sessions *session.Store
	log      *logger.Logger
}

func New(orders Orders, sessions *session.Store, log *logger.Logger) *Handler {
	return &Handler{orders: orders, sessions: sessions, log: log}
}

func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	v1.POST("/orders", h.CreateOrder)

	s := v1.Group("/sessions/:session")
	s.GET("/cart", h.GetCart)
	s.POST("/cart/items", h.AddItem)
	s.PATCH("/cart/items/:item", h.UpdateItem)
	s.DELETE("/cart/items/:item", h.RemoveItem)
	s.DELETE("/cart", h.ClearCart)
	s.POST("/checkout", h.Checkout)
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var in domain.OrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httpx.BadRequest(c, "invalid JSON body")
		return
	}
	id, err := h.orders.CreateOrder(c.Request.Context(), in)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order_id": id, "status": domain.StatusPending})
}

type cartView struct {
	Items       []domain.OrderItem `json:"items"`
	Total       decimal.Decimal    `json:"total"`
	Count       int                `json:"count"`
	TableNumber int                `json:"table_number,omitempty"`
	OrderID     string             `json:"order_id,omitempty"`
}

func (h *Handler) view(id string) cartView {
	v := cartView{Items: []domain.OrderItem{}, Total: decimal.Zero}
	sess, ok := h.sessions.Lookup(id)
	if !ok {
		return v
	}
	v.TableNumber, v.OrderID = h.sessions.Snapshot(id)
	v.Items = sess.Cart.Items()
	v.Total = sess.Cart.Total()
	v.Count = sess.Cart.Count()
	return v
}

// cart returns the cart of an existing session. Only AddItem starts one.
func (h *Handler) cart(id string) (*session.Cart, error) {
	sess, ok := h.sessions.Lookup(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return sess.Cart, nil
}

func (h *Handler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.view(c.Param("session")))
}

func (h *Handler) AddItem(c *gin.Context) {
	var it domain.OrderItem
	if err := c.ShouldBindJSON(&it); err != nil {
		httpx.BadRequest(c, "invalid JSON body")
		return
	}
	id := c.Param("session")
	if err := h.sessions.Get(id).Cart.Add(it); err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.view(id))
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) UpdateItem(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		httpx.BadRequest(c, "quantity is required")
		return
	}
	id := c.Param("session")
	cart, err := h.cart(id)
	if err == nil {
		err = cart.UpdateQuantity(c.Param("item"), *req.Quantity)
	}
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(id))
}

func (h *Handler) RemoveItem(c *gin.Context) {
	id := c.Param("session")
	cart, err := h.cart(id)
	if err == nil {
		err = cart.Remove(c.Param("item"))
	}
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(id))
}

func (h *Handler) ClearCart(c *gin.Context) {
	id := c.Param("session")
	if cart, err := h.cart(id); err == nil {
		cart.Clear()
	}
	c.JSON(http.StatusOK, h.view(id))
}

type checkoutRequest struct {
	TableNumber         int    `json:"table_number"`
	CustomerName        string `json:"customer_name"`
	SpecialInstructions string `json:"special_instructions"`
}

// Checkout places the session's cart as an order and empties the cart once
// the order is stored.
func (h *Handler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid JSON body")
		return
	}
	id := c.Param("session")
	cart, err := h.cart(id)
	if err != nil {
		httpx.Fail(c, domain.Invalid("items", "cart is empty"))
		return
	}

	in, err := cart.Checkout(req.TableNumber, req.CustomerName, req.SpecialInstructions)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	orderID, err := h.orders.CreateOrder(c.Request.Context(), in)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	cart.Clear()
	h.sessions.Placed(id, req.TableNumber, orderID)
	h.log.Info("checkout_completed", map[string]any{"session": id, "order_id": orderID, "table_number": req.TableNumber})

	c.JSON(http.StatusCreated, gin.H{"order_id": orderID, "status": domain.StatusPending, "table_number": req.TableNumber})
}
