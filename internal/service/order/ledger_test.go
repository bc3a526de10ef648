package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/kvstore"
)

func TestLedger_SaveUpserts(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(kvstore.NewMemory(), nil)
	o := storedOrder("ORD-1", "guest_1", "", time.Now().UTC())

	require.NoError(t, l.Save(ctx, o))
	o.Status = domain.OrderCancelled
	require.NoError(t, l.Save(ctx, o))

	all, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.OrderCancelled, all[0].Status)
}

func TestLedger_LegacyShapes(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	legacy := `[
		{
			"orderId": "ORD-OLD",
			"customer": {"sessionId": "guest_1", "email": "old@example.com"},
			"items": [{"productId": "a", "price": 20, "name": "Legacy A", "quantity": 3, "addedAt": 1746000000000}],
			"shipping": {"fullName": "Old Customer", "line1": "2 Side St", "city": "Bergen", "postalCode": "5003", "country": "NO"},
			"subtotal": "60.00",
			"tax": 4.8,
			"total": "64.80",
			"status": "Completed",
			"createdAt": 1746000000000
		},
		"not an object",
		{"id": "", "items": []},
		{
			"id": "ORD-NEW",
			"sessionId": "guest_2",
			"items": [{"productId": "b", "unitPrice": "$15", "quantity": 2}],
			"shippingAddress": {"fullName": "New Customer", "line1": "3 Main St", "city": "Oslo", "postalCode": "0150", "country": "NO"},
			"tax": "2.40",
			"createdAt": "2026-01-02T03:04:05Z"
		}
	]`
	require.NoError(t, store.Set(ctx, kvstore.OrdersKey, legacy))
	l := NewLedger(store, nil)

	all, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	old := all[0]
	assert.Equal(t, "ORD-OLD", old.ID)
	assert.Equal(t, "guest_1", old.SessionID)
	assert.Equal(t, "Bergen", old.ShippingAddress.City)
	assert.Equal(t, "64.8", old.GrandTotal.String())
	assert.Equal(t, domain.OrderCompleted, old.Status)
	assert.Equal(t, time.UnixMilli(1746000000000).UTC(), old.CreatedAt)
	assert.Equal(t, domain.Price("20"), old.Items[0].UnitPrice)
	assert.Equal(t, "Legacy A", old.Items[0].DisplayName)

	fresh := all[1]
	assert.Equal(t, "30", fresh.Subtotal.String(), "subtotal falls back to the item sum")
	assert.Equal(t, "32.4", fresh.GrandTotal.String())
	assert.Equal(t, domain.OrderPending, fresh.Status)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), fresh.CreatedAt)

	got, err := l.Get(ctx, "ORD-OLD")
	require.NoError(t, err, "orders only present in the list are still found")
	assert.Equal(t, "old@example.com", got.Customer.Email)
}

func TestLedger_CorruptListReadsEmpty(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(ctx, kvstore.OrdersKey, "{broken"))
	l := NewLedger(store, nil)

	all, err := l.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, l.Save(ctx, storedOrder("ORD-1", "guest_1", "", time.Now().UTC())))
	all, err = l.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLedger_GetPrefersRecordKey(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	l := NewLedger(store, nil)
	o := storedOrder("ORD-1", "guest_1", "", time.Now().UTC())
	require.NoError(t, l.Save(ctx, o))
	require.NoError(t, store.Delete(ctx, kvstore.OrdersKey))

	got, err := l.Get(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", got.ID)

	_, err = l.Get(ctx, "ORD-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
