package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/kvstore"
)

func TestKV_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	repo := NewKV(store)

	_, err := repo.Load(ctx, "guest_1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	items := []domain.CartItem{{
		ProductID:   "bim-modeling",
		Variant:     "lod-300",
		Quantity:    2,
		UnitPrice:   "499.00",
		DisplayName: "BIM Modeling",
		AddedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}}
	require.NoError(t, repo.Save(ctx, "guest_1", items))

	got, err := repo.Load(ctx, "guest_1")
	require.NoError(t, err)
	assert.Equal(t, items, got)

	require.NoError(t, repo.Save(ctx, "guest_1", nil))
	got, err = repo.Load(ctx, "guest_1")
	require.NoError(t, err)
	assert.Empty(t, got, "an emptied cart is stored as an empty snapshot")

	require.NoError(t, repo.Delete(ctx, "guest_1"))
	_, err = repo.Load(ctx, "guest_1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestKV_CorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(ctx, kvstore.CartKey("guest_1"), "[oops"))

	_, err := NewKV(store).Load(ctx, "guest_1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
