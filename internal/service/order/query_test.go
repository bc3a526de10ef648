package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/kvstore"
	"storefront/internal/remote"
)

func storedOrder(id, sessionID, userID string, created time.Time) domain.Order {
	return domain.Order{
		ID:        id,
		SessionID: sessionID,
		UserID:    userID,
		Customer:  domain.Customer{UserID: userID, SessionID: sessionID, Email: "c@example.com", FirstName: "C", LastName: "D", Phone: "12345"},
		Items: []domain.CartItem{
			{ProductID: "revit-audit", Quantity: 2, UnitPrice: "100.00", DisplayName: "Revit audit", AddedAt: created.Add(-time.Hour)},
		},
		ShippingAddress: domain.ShippingAddress{FullName: "C D", Line1: "1 Main St", City: "Oslo", PostalCode: "0150", Country: "NO"},
		Payment:         domain.PaymentSummary{Method: "invoice", MaskedReference: "invoice"},
		Subtotal:        decimal.RequireFromString("200"),
		Tax:             decimal.RequireFromString("16"),
		GrandTotal:      decimal.RequireFromString("216"),
		Status:          domain.OrderPending,
		CreatedAt:       created,
	}
}

// viaRemote passes o through the remote wire format.
func viaRemote(t *testing.T, o domain.Order) domain.Order {
	t.Helper()
	raw, err := json.Marshal(remote.FromDomain(o))
	require.NoError(t, err)
	var rec remote.Order
	require.NoError(t, json.Unmarshal(raw, &rec))
	return rec.ToDomain()
}

func assertSameOrder(t *testing.T, want, got domain.Order) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.SessionID, got.SessionID)
	assert.Equal(t, want.UserID, got.UserID)
	assert.Equal(t, want.Customer, got.Customer)
	assert.Equal(t, want.ShippingAddress, got.ShippingAddress)
	assert.Equal(t, want.Payment, got.Payment)
	assert.Equal(t, want.Status, got.Status)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "createdAt %s != %s", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.Subtotal.Equal(got.Subtotal), "subtotal %s != %s", want.Subtotal, got.Subtotal)
	assert.True(t, want.Tax.Equal(got.Tax), "tax %s != %s", want.Tax, got.Tax)
	assert.True(t, want.GrandTotal.Equal(got.GrandTotal), "grandTotal %s != %s", want.GrandTotal, got.GrandTotal)
	require.Len(t, got.Items, len(want.Items))
	for i := range want.Items {
		w, g := want.Items[i], got.Items[i]
		assert.Equal(t, w.ProductID, g.ProductID)
		assert.Equal(t, w.Variant, g.Variant)
		assert.Equal(t, w.Quantity, g.Quantity)
		assert.True(t, w.UnitPrice.Decimal().Equal(g.UnitPrice.Decimal()))
		assert.Equal(t, w.DisplayName, g.DisplayName)
		assert.True(t, w.AddedAt.Equal(g.AddedAt))
	}
}

func TestGet_SameShapeFromEitherSource(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	o := storedOrder("ORD-1", "user_42", "42", created)
	caller := member("42")

	fromRemote := NewQuery(&stubRemote{orders: map[string]domain.Order{"ORD-1": viaRemote(t, o)}}, NewLedger(kvstore.NewMemory(), nil), nil)
	remoteCopy, err := fromRemote.Get(ctx, caller, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceRemote, remoteCopy.Source)

	ledger := NewLedger(kvstore.NewMemory(), nil)
	require.NoError(t, ledger.Save(ctx, o))
	fromLocal := NewQuery(&stubRemote{getErr: remote.ErrUnavailable}, ledger, nil)
	localCopy, err := fromLocal.Get(ctx, caller, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceLocal, localCopy.Source)

	assertSameOrder(t, remoteCopy, localCopy)
	assertSameOrder(t, o, localCopy)
}

func TestGet_OwnershipDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, f.ledger.Save(ctx, storedOrder("ORD-U", "user_42", "42", created)))
	require.NoError(t, f.ledger.Save(ctx, storedOrder("ORD-G", "guest_1", "", created)))

	_, err := f.query.Get(ctx, member("43"), "ORD-U")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.query.Get(ctx, guest("user_42"), "ORD-U")
	assert.ErrorIs(t, err, domain.ErrNotFound, "session match alone does not unlock a user's order")
	_, err = f.query.Get(ctx, guest("guest_2"), "ORD-G")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.query.Get(ctx, member("42"), "ORD-U")
	assert.NoError(t, err)
	_, err = f.query.Get(ctx, guest("guest_1"), "ORD-G")
	assert.NoError(t, err)
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.query.Get(context.Background(), guest("guest_1"), "ORD-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.query.Get(context.Background(), guest("guest_1"), "  ")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_RemoteWinsOverLocal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	o := storedOrder("ORD-1", "user_42", "42", created)
	require.NoError(t, f.ledger.Save(ctx, o))

	completed := o
	completed.Status = domain.OrderCompleted
	f.remote.orders = map[string]domain.Order{"ORD-1": completed}

	got, err := f.query.Get(ctx, member("42"), "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, got.Status)
}

func TestListForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	f.remote.list = []domain.Order{
		storedOrder("R-1", "user_42", "42", base),
		storedOrder("R-2", "user_42", "42", base.Add(2*time.Hour)),
	}
	require.NoError(t, f.ledger.Save(ctx, storedOrder("R-1", "user_42", "42", base)))
	require.NoError(t, f.ledger.Save(ctx, storedOrder("L-1", "user_42", "42", base.Add(time.Hour))))
	require.NoError(t, f.ledger.Save(ctx, storedOrder("L-other", "user_43", "43", base.Add(3*time.Hour))))

	orders, err := f.query.ListForUser(ctx, member("42"), 0)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "R-2", orders[0].ID)
	assert.Equal(t, "L-1", orders[1].ID)
	assert.Equal(t, "R-1", orders[2].ID)
	assert.Equal(t, domain.SourceLocal, orders[1].Source)
	assert.Equal(t, []string{"42"}, f.remote.listFor)

	limited, err := f.query.ListForUser(ctx, member("42"), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListForUser_RemoteFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.remote.listErr = errors.New("timeout")
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, f.ledger.Save(ctx, storedOrder("L-1", "user_42", "42", base)))
	require.NoError(t, f.ledger.Save(ctx, storedOrder("L-2", "user_42", "42", base.Add(time.Minute))))

	orders, err := f.query.ListForUser(ctx, member("42"), 10)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "L-2", orders[0].ID)
}

func TestListForUser_GuestSkipsRemote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, f.ledger.Save(ctx, storedOrder("G-1", "guest_1", "", base)))
	require.NoError(t, f.ledger.Save(ctx, storedOrder("G-2", "guest_2", "", base)))

	orders, err := f.query.ListForUser(ctx, guest("guest_1"), 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "G-1", orders[0].ID)
	assert.Empty(t, f.remote.listFor)

	empty, err := f.query.ListForUser(ctx, guest("guest_9"), 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, clampLimit(0))
	assert.Equal(t, DefaultListLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, MaxListLimit, clampLimit(1000))
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ledger.Save(ctx, storedOrder("ORD-1", "guest_1", "", time.Now().UTC())))

	o, err := f.query.UpdateStatus(ctx, "ORD-1", domain.OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, o.Status)

	_, err = f.query.UpdateStatus(ctx, "ORD-1", domain.OrderCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.query.UpdateStatus(ctx, "ORD-1", domain.OrderStatus("shipped"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.query.UpdateStatus(ctx, "ORD-missing", domain.OrderCompleted)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := f.ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.OrderCompleted, all[0].Status)
}

func TestUpdateStatus_RemoteOrderReadsBackUpdated(t *testing.T) {
	f := newFixture(t)
	f.remote.createErr = nil
	ctx := context.Background()
	caller := member("42")

	res, err := f.submitter.Submit(ctx, caller, f.fillCart(t, caller.ID), validInput())
	require.NoError(t, err)
	require.True(t, res.RemoteAccepted)
	f.remote.orders = map[string]domain.Order{res.Order.ID: res.Order}

	updated, err := f.query.UpdateStatus(ctx, res.Order.ID, domain.OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, updated.Status)
	assert.Equal(t, domain.SourceRemote, updated.Source)

	got, err := f.query.Get(ctx, caller, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, got.Status)

	local, err := f.ledger.Get(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, local.Status, "local copy follows the remote")

	_, err = f.query.UpdateStatus(ctx, res.Order.ID, domain.OrderCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateStatus_RemoteDownOverlaysLocalStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caller := member("42")
	o := storedOrder("ORD-1", caller.ID, "42", time.Now().UTC())
	require.NoError(t, f.ledger.Save(ctx, o))
	f.remote.orders = map[string]domain.Order{o.ID: o}
	f.remote.list = []domain.Order{o}
	f.remote.updateErr = remote.ErrUnavailable

	updated, err := f.query.UpdateStatus(ctx, o.ID, domain.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, updated.Status)

	got, err := f.query.Get(ctx, caller, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, got.Status)

	list, err := f.query.ListForUser(ctx, caller, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.OrderCancelled, list[0].Status)
}
