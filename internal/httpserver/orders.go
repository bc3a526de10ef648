package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	ordersvc "storefront/internal/service/order"
)

type checkoutResponse struct {
	Order          domain.Order `json:"order"`
	RemoteAccepted bool         `json:"remoteAccepted"`
	Replayed       bool         `json:"replayed"`
}

type orderListResponse struct {
	Orders []domain.Order `json:"orders"`
	Count  int            `json:"count"`
}

func (h *handlers) checkout(c *gin.Context) {
	var in ordersvc.CheckoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid checkout payload"})
		return
	}
	in.IdempotencyKey = strings.TrimSpace(c.GetHeader(idempotencyHeader))

	res, err := h.deps.CheckoutSvc.Submit(c.Request.Context(), identityFrom(c), h.openCart(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, checkoutResponse{
		Order:          res.Order,
		RemoteAccepted: res.RemoteAccepted,
		Replayed:       res.Replayed,
	})
}

func (h *handlers) listOrders(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a number"})
			return
		}
		limit = n
	}
	orders, err := h.deps.OrderQuery.ListForUser(c.Request.Context(), identityFrom(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderListResponse{Orders: orders, Count: len(orders)})
}

func (h *handlers) getOrder(c *gin.Context) {
	o, err := h.deps.OrderQuery.Get(c.Request.Context(), identityFrom(c), c.Param("orderId"))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
