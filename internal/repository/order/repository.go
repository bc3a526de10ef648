package order

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

// ErrStatusChanged means the order no longer had the expected status when the
// update ran.
var ErrStatusChanged = errors.New("order status changed")

// Repository stores the orders accepted by the order API.
type Repository interface {
	Create(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, orderID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	// UpdateStatus sets status to to when it is still from.
	UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) (domain.Order, error)
}
