package cart

import (
	"context"
	"errors"

	"storefront/internal/domain"
	"storefront/internal/kvstore"
)

type kvRepo struct {
	store kvstore.Store
}

// NewKV returns a Repository that keeps snapshots under cart:<sessionID>.
func NewKV(store kvstore.Store) Repository {
	return &kvRepo{store: store}
}

func (r *kvRepo) Load(ctx context.Context, sessionID string) ([]domain.CartItem, error) {
	var snap domain.Cart
	if err := kvstore.GetJSON(ctx, r.store, kvstore.CartKey(sessionID), &snap); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return snap.Items, nil
}

func (r *kvRepo) Save(ctx context.Context, sessionID string, items []domain.CartItem) error {
	return kvstore.SetJSON(ctx, r.store, kvstore.CartKey(sessionID), domain.Cart{
		SessionID: sessionID,
		Items:     domain.CloneItems(items),
	})
}

func (r *kvRepo) Delete(ctx context.Context, sessionID string) error {
	return r.store.Delete(ctx, kvstore.CartKey(sessionID))
}
