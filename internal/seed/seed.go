// Package seed loads demo data for manual testing: a storefront account and,
// optionally, a few orders for it in the order API's table.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
	orderrepo "storefront/internal/repository/order"
	customersvc "storefront/internal/service/customer"
)

type Options struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	// Orders is the number of demo orders to create for the account.
	Orders  int
	TaxRate decimal.Decimal
}

type catalogItem struct {
	ProductID string
	Name      string
	Price     domain.Price
}

var demoCatalog = []catalogItem{
	{ProductID: "revit-audit", Name: "Revit model audit", Price: "450.00"},
	{ProductID: "clash-report", Name: "Clash detection report", Price: "275.00"},
	{ProductID: "bim-coordination", Name: "BIM coordination (per week)", Price: "1200.00"},
}

// Apply upserts the demo account and returns its id. It is idempotent: the
// account is matched by email and demo orders use fixed ids.
func Apply(ctx context.Context, pool *pgxpool.Pool, opts Options, log *zap.Logger) (string, error) {
	log = logger.OrNop(log).Named("seed")

	hash, err := customersvc.HashPassword(opts.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	userID, err := upsertCustomer(ctx, pool, opts, hash)
	if err != nil {
		return "", fmt.Errorf("upsert customer %s: %w", opts.Email, err)
	}
	log.Info("demo customer ready", zap.String("email", opts.Email), zap.String("user_id", userID))

	orders := orderrepo.NewPostgres(pool, log)
	now := time.Now().UTC().Truncate(time.Second)
	created := 0
	for i := 0; i < opts.Orders; i++ {
		o := demoOrder(userID, opts, i, now.Add(-time.Duration(i)*24*time.Hour))
		if err := orders.Create(ctx, o); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				continue
			}
			return "", fmt.Errorf("create order %s: %w", o.ID, err)
		}
		created++
	}
	if opts.Orders > 0 {
		log.Info("demo orders ready", zap.Int("created", created), zap.Int("requested", opts.Orders))
	}
	return userID, nil
}

func upsertCustomer(ctx context.Context, pool *pgxpool.Pool, opts Options, hash string) (string, error) {
	const q = `
INSERT INTO customers (email, password_hash, first_name, last_name)
VALUES ($1, $2, $3, $4)
ON CONFLICT ((lower(email))) DO UPDATE
SET password_hash = EXCLUDED.password_hash,
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name
RETURNING id::text
`
	var id string
	err := pool.QueryRow(ctx, q, strings.ToLower(strings.TrimSpace(opts.Email)), hash, opts.FirstName, opts.LastName).Scan(&id)
	return id, err
}

func demoOrder(userID string, opts Options, n int, createdAt time.Time) domain.Order {
	item := demoCatalog[n%len(demoCatalog)]
	line := domain.CartItem{
		ProductID:   item.ProductID,
		Quantity:    n%3 + 1,
		UnitPrice:   item.Price,
		DisplayName: item.Name,
		AddedAt:     createdAt.Add(-10 * time.Minute),
	}
	items := []domain.CartItem{line}
	subtotal := domain.SumItems(items)
	tax := subtotal.Mul(opts.TaxRate).Round(2)
	sessionID := "user_" + userID

	status := domain.OrderPending
	if n > 0 {
		status = domain.OrderCompleted
	}
	return domain.Order{
		ID:        "ORD-DEMO-" + shortID(userID) + "-" + strconv.Itoa(n+1),
		SessionID: sessionID,
		UserID:    userID,
		Customer: domain.Customer{
			UserID:    userID,
			SessionID: sessionID,
			Email:     strings.ToLower(opts.Email),
			FirstName: opts.FirstName,
			LastName:  opts.LastName,
		},
		Items: items,
		ShippingAddress: domain.ShippingAddress{
			FullName:   strings.TrimSpace(opts.FirstName + " " + opts.LastName),
			Line1:      "1 Demo Street",
			City:       "Springfield",
			PostalCode: "00000",
			Country:    "US",
		},
		Payment:    domain.PaymentSummary{Method: "invoice", MaskedReference: "invoice"},
		Subtotal:   subtotal,
		Tax:        tax,
		GrandTotal: subtotal.Add(tax),
		Status:     status,
		CreatedAt:  createdAt,
	}
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
