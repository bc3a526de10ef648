package cart

import (
	"context"

	"storefront/internal/domain"
)

// Repository persists whole-cart snapshots keyed by session id. Every Save
// overwrites the previous snapshot.
type Repository interface {
	Load(ctx context.Context, sessionID string) ([]domain.CartItem, error)
	Save(ctx context.Context, sessionID string, items []domain.CartItem) error
	Delete(ctx context.Context, sessionID string) error
}
