package orderapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/remote"
	orderrepo "storefront/internal/repository/order"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type handlers struct {
	orders orderStore
	now    func() time.Time
	log    *zap.Logger
}

type listResponse struct {
	Orders []remote.OrderPayload `json:"orders"`
}

// create accepts an order in the remote shape. The caller's order_id is kept
// when present; otherwise one is assigned.
func (h *handlers) create(c *gin.Context) {
	var in remote.Order
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, remote.CreateResponse{Error: "invalid order payload"})
		return
	}
	o := in.ToDomain()
	if msg := checkOrder(o); msg != "" {
		c.JSON(http.StatusBadRequest, remote.CreateResponse{Error: msg})
		return
	}
	if o.ID == "" {
		o.ID = "RMT-" + uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = h.now().UTC()
	}
	o.Source = ""

	if err := h.orders.Create(c.Request.Context(), o); err != nil {
		_ = c.Error(err)
		if errors.Is(err, domain.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, remote.CreateResponse{OrderID: o.ID, Error: "order already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, remote.CreateResponse{Error: "order not stored"})
		return
	}
	h.log.Info("order stored",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.String("total", o.GrandTotal.StringFixed(2)))
	c.JSON(http.StatusCreated, remote.CreateResponse{Success: true, OrderID: o.ID})
}

func checkOrder(o domain.Order) string {
	switch {
	case strings.TrimSpace(o.SessionID) == "":
		return "session_id is required"
	case len(o.Items) == 0:
		return "items must not be empty"
	case o.GrandTotal.IsNegative():
		return "total must not be negative"
	}
	return ""
}

func (h *handlers) get(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, remote.FromDomain(o))
}

// updateStatus moves a pending order to completed or cancelled.
func (h *handlers) updateStatus(c *gin.Context) {
	var req remote.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	to := domain.NormalizeStatus(req.Status)
	if to == domain.OrderPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be completed or cancelled"})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("orderId")
	current, err := h.orders.Get(ctx, id)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	if !current.Status.CanTransition(to) {
		c.JSON(http.StatusConflict, gin.H{"error": "order is already " + string(current.Status)})
		return
	}
	updated, err := h.orders.UpdateStatus(ctx, id, current.Status, to)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	h.log.Info("order status changed",
		zap.String("order_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)))
	c.JSON(http.StatusOK, remote.FromDomain(updated))
}

func (h *handlers) writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, orderrepo.ErrStatusChanged):
		c.JSON(http.StatusConflict, gin.H{"error": "order status changed"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *handlers) listByUser(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive number"})
			return
		}
		limit = min(n, maxListLimit)
	}

	orders, err := h.orders.ListByUser(c.Request.Context(), c.Param("userId"), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	out := make([]remote.OrderPayload, 0, len(orders))
	for _, o := range orders {
		out = append(out, remote.FromDomain(o))
	}
	c.JSON(http.StatusOK, listResponse{Orders: out})
}
