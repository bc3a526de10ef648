package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
)

type addCartItemRequest struct {
	ProductID   string       `json:"productId" binding:"required"`
	Variant     string       `json:"variant"`
	UnitPrice   domain.Price `json:"unitPrice"`
	DisplayName string       `json:"displayName"`
	Quantity    int          `json:"quantity"`
}

type updateCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Variant   string `json:"variant"`
	Quantity  int    `json:"quantity"`
}

type cartResponse struct {
	SessionID string            `json:"sessionId"`
	Items     []domain.CartItem `json:"items"`
	ItemCount int               `json:"itemCount"`
	Total     decimal.Decimal   `json:"total"`
}

func toCartResponse(st *cartsvc.Store) cartResponse {
	snap := st.Snapshot()
	items := snap.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return cartResponse{
		SessionID: snap.SessionID,
		Items:     items,
		ItemCount: snap.ItemCount(),
		Total:     snap.Total(),
	}
}

func (h *handlers) openCart(c *gin.Context) *cartsvc.Store {
	identity := identityFrom(c)
	sessionID := ""
	if identity != nil {
		sessionID = identity.ID
	}
	return h.deps.CartSvc.Open(c.Request.Context(), sessionID)
}

func (h *handlers) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, toCartResponse(h.openCart(c)))
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "productId is required"})
		return
	}
	st := h.openCart(c)
	_, _, err := st.AddItem(c.Request.Context(), cartsvc.ItemInput{
		ProductID:   req.ProductID,
		Variant:     req.Variant,
		UnitPrice:   req.UnitPrice,
		DisplayName: req.DisplayName,
	}, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(st))
}

func (h *handlers) updateCartItem(c *gin.Context) {
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "productId is required"})
		return
	}
	st := h.openCart(c)
	if _, err := st.UpdateQuantity(c.Request.Context(), req.ProductID, req.Variant, req.Quantity); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(st))
}

// removeCartItem reads the line from ?productId=&variant=.
func (h *handlers) removeCartItem(c *gin.Context) {
	productID := c.Query("productId")
	if productID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "productId is required"})
		return
	}
	st := h.openCart(c)
	if _, err := st.RemoveItem(c.Request.Context(), productID, c.Query("variant")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(st))
}

func (h *handlers) clearCart(c *gin.Context) {
	if err := h.openCart(c).Clear(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
