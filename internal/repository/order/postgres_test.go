package order

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/migrate"
)

func integrationPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("ping db: %v", err)
	}
	return pool
}

func sampleOrder(id, userID string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:        id,
		SessionID: "user_" + userID,
		UserID:    userID,
		Customer:  domain.Customer{UserID: userID, SessionID: "user_" + userID, Email: "ada@example.com", FirstName: "Ada"},
		Items: []domain.CartItem{{
			ProductID: "revit-audit", Quantity: 2, UnitPrice: "120.00", DisplayName: "Revit model audit",
			AddedAt: createdAt.Add(-time.Minute),
		}},
		ShippingAddress: domain.ShippingAddress{FullName: "Ada Lovelace", Line1: "12 Square", City: "London", PostalCode: "SW1", Country: "GB"},
		Payment:         domain.PaymentSummary{Method: "card", MaskedReference: "**** 4242"},
		Subtotal:        decimal.RequireFromString("240"),
		Tax:             decimal.RequireFromString("19.2"),
		GrandTotal:      decimal.RequireFromString("259.2"),
		Status:          domain.OrderPending,
		CreatedAt:       createdAt,
	}
}

func TestPostgresRepo_Integration(t *testing.T) {
	ctx := context.Background()
	pool := integrationPool(ctx, t)
	defer pool.Close()

	require.NoError(t, migrate.Apply(ctx, pool, nil))
	_, err := pool.Exec(ctx, `TRUNCATE remote_orders`)
	require.NoError(t, err)

	repo := NewPostgres(pool, nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	older := sampleOrder("ORD-1-aaaaaaaa", "42", base)
	newer := sampleOrder("ORD-2-bbbbbbbb", "42", base.Add(time.Hour))
	guest := sampleOrder("ORD-3-cccccccc", "", base)
	guest.SessionID = "guest_1"

	for _, o := range []domain.Order{older, newer, guest} {
		require.NoError(t, repo.Create(ctx, o))
	}
	assert.ErrorIs(t, repo.Create(ctx, older), domain.ErrAlreadyExists)

	got, err := repo.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.True(t, older.GrandTotal.Equal(got.GrandTotal))
	assert.Equal(t, older.Items[0].ProductID, got.Items[0].ProductID)
	assert.Equal(t, older.ShippingAddress, got.ShippingAddress)
	assert.True(t, older.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.Get(ctx, "ORD-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := repo.ListByUser(ctx, "42", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)

	guestRow, err := repo.Get(ctx, guest.ID)
	require.NoError(t, err)
	assert.Empty(t, guestRow.UserID)

	done, err := repo.UpdateStatus(ctx, older.ID, domain.OrderPending, domain.OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, done.Status)

	_, err = repo.UpdateStatus(ctx, older.ID, domain.OrderPending, domain.OrderCancelled)
	assert.ErrorIs(t, err, ErrStatusChanged)

	_, err = repo.UpdateStatus(ctx, "ORD-missing", domain.OrderPending, domain.OrderCompleted)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
