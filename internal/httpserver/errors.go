package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/service/admin"
	cartsvc "storefront/internal/service/cart"
	customersvc "storefront/internal/service/customer"
	ordersvc "storefront/internal/service/order"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeError maps service errors to HTTP responses. Unknown errors become 500
// without leaking their text; the request logger still records them.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var verr *ordersvc.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
		return
	}

	status, msg := statusFor(err)
	c.JSON(status, errorResponse{Error: msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, ordersvc.ErrEmptyCart):
		return http.StatusBadRequest, "cart is empty"
	case errors.Is(err, ordersvc.ErrSubmissionInFlight):
		return http.StatusConflict, "checkout already in progress"
	case errors.Is(err, ordersvc.ErrInvalidTransition):
		return http.StatusConflict, "invalid status transition"
	case errors.Is(err, ordersvc.ErrPersistFailed):
		return http.StatusServiceUnavailable, "order could not be stored"
	case errors.Is(err, cartsvc.ErrPersist):
		return http.StatusServiceUnavailable, "cart could not be saved"
	case errors.Is(err, cartsvc.ErrNoSession):
		return http.StatusUnauthorized, "session required"
	case errors.Is(err, customersvc.ErrInvalidCredentials), errors.Is(err, admin.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, "already exists"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeOrderError reports a missing and a foreign order identically.
func writeOrderError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthorized) {
		_ = c.Error(err)
		c.JSON(http.StatusNotFound, errorResponse{Error: "order not found"})
		return
	}
	writeError(c, err)
}
