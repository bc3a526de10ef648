package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

type postgresRepo struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewPostgres returns a Repository backed by the remote_orders table.
func NewPostgres(pool *pgxpool.Pool, log *zap.Logger) Repository {
	return &postgresRepo{pool: pool, log: logger.OrNop(log).Named("order_repo")}
}

const orderColumns = `order_id, session_id, COALESCE(user_id, ''), customer, items, shipping, payment,
subtotal::text, tax::text, total::text, status, created_at`

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) error {
	const q = `
INSERT INTO remote_orders (
    order_id, session_id, user_id, customer, items, shipping, payment,
    subtotal, tax, total, status, created_at
) VALUES (
    $1, $2, NULLIF($3, ''), $4, $5, $6, $7,
    $8::text::numeric, $9::text::numeric, $10::text::numeric, $11, $12
)`
	items := o.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	_, err := r.pool.Exec(ctx, q,
		o.ID,
		o.SessionID,
		o.UserID,
		o.Customer,
		items,
		o.ShippingAddress,
		o.Payment,
		o.Subtotal.StringFixed(2),
		o.Tax.StringFixed(2),
		o.GrandTotal.StringFixed(2),
		string(o.Status),
		o.CreatedAt.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		r.log.Error("insert order", zap.String("order_id", o.ID), zap.Error(err))
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, orderID string) (domain.Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM remote_orders
WHERE order_id = $1
`
	o, err := scanOrder(r.pool.QueryRow(ctx, q, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrNotFound
		}
		r.log.Error("get order", zap.String("order_id", orderID), zap.Error(err))
		return domain.Order{}, err
	}
	return o, nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM remote_orders
WHERE user_id = $1
ORDER BY created_at DESC, order_id
LIMIT $2
`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders for %s: %w", userID, err)
	}
	defer rows.Close()

	out := make([]domain.Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) (domain.Order, error) {
	const q = `
UPDATE remote_orders
SET status = $3
WHERE order_id = $1 AND status = $2
RETURNING ` + orderColumns
	o, err := scanOrder(r.pool.QueryRow(ctx, q, orderID, string(from), string(to)))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.log.Error("update order status", zap.String("order_id", orderID), zap.Error(err))
		return domain.Order{}, fmt.Errorf("update status of %s: %w", orderID, err)
	}
	if _, err := r.Get(ctx, orderID); err != nil {
		return domain.Order{}, err
	}
	return domain.Order{}, ErrStatusChanged
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o                    domain.Order
		status               string
		subtotal, tax, total string
	)
	err := row.Scan(
		&o.ID,
		&o.SessionID,
		&o.UserID,
		&o.Customer,
		&o.Items,
		&o.ShippingAddress,
		&o.Payment,
		&subtotal,
		&tax,
		&total,
		&status,
		&o.CreatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return domain.Order{}, fmt.Errorf("subtotal: %w", err)
	}
	if o.Tax, err = decimal.NewFromString(tax); err != nil {
		return domain.Order{}, fmt.Errorf("tax: %w", err)
	}
	if o.GrandTotal, err = decimal.NewFromString(total); err != nil {
		return domain.Order{}, fmt.Errorf("total: %w", err)
	}
	o.Status = domain.NormalizeStatus(status)
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}
