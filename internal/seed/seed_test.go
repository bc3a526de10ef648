package seed

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"storefront/internal/domain"
)

func TestDemoOrder(t *testing.T) {
	opts := Options{Email: "Demo@Example.com", FirstName: "Demo", LastName: "User", TaxRate: decimal.RequireFromString("0.08")}
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := demoOrder("0b7c1a52-5a4e-4bd6-9a53-7d1f0c7e2f11", opts, 0, at)
	assert.Equal(t, "ORD-DEMO-0b7c1a52-1", first.ID)
	assert.Equal(t, "user_0b7c1a52-5a4e-4bd6-9a53-7d1f0c7e2f11", first.SessionID)
	assert.Equal(t, domain.OrderPending, first.Status)
	assert.Equal(t, "450", first.Subtotal.String())
	assert.Equal(t, "36", first.Tax.String())
	assert.Equal(t, "486", first.GrandTotal.String())
	assert.Equal(t, "demo@example.com", first.Customer.Email)
	assert.True(t, first.OwnedBy(domain.SessionIdentity{ID: first.SessionID, UserID: first.UserID}))

	second := demoOrder("42", opts, 1, at)
	assert.Equal(t, "ORD-DEMO-42-2", second.ID)
	assert.Equal(t, domain.OrderCompleted, second.Status)
	assert.Equal(t, 2, second.Items[0].Quantity)
	assert.Equal(t, "550", second.Subtotal.String())
}
