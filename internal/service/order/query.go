package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/remote"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type remoteOrders interface {
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListUserOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error)
}

// Query reads orders remote-first and falls back to the local ledger. Every
// order it returns has the canonical shape regardless of source.
type Query struct {
	remote remoteOrders
	ledger *Ledger
	log    *zap.Logger
}

func NewQuery(rr remoteOrders, ledger *Ledger, log *zap.Logger) *Query {
	return &Query{remote: rr, ledger: ledger, log: logger.OrNop(log).Named("orders")}
}

// Get returns the order if caller owns it. Orders owned by someone else are
// reported as domain.ErrNotFound.
func (q *Query) Get(ctx context.Context, caller *domain.SessionIdentity, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" || caller == nil {
		return domain.Order{}, domain.ErrNotFound
	}

	o, err := q.remote.GetOrder(ctx, orderID)
	if err != nil {
		q.logRemote("get", err, zap.String("order_id", orderID))
		o, err = q.ledger.Get(ctx, orderID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				q.log.Warn("local order lookup failed", zap.String("order_id", orderID), zap.Error(err))
			}
			return domain.Order{}, domain.ErrNotFound
		}
	} else if local, lerr := q.ledger.Get(ctx, orderID); lerr == nil {
		o = settle(o, local)
	}

	if !o.OwnedBy(*caller) {
		q.log.Info("order access denied", zap.String("order_id", orderID), zap.String("session_id", caller.ID))
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

// ListForUser returns the caller's orders newest first. Authenticated callers
// are served from the remote service when it answers; local orders it does not
// know about are added so backups written during an outage stay visible.
func (q *Query) ListForUser(ctx context.Context, caller *domain.SessionIdentity, limit int) ([]domain.Order, error) {
	if caller == nil {
		return []domain.Order{}, nil
	}
	limit = clampLimit(limit)

	local, err := q.ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	localByID := make(map[string]domain.Order, len(local))
	for _, o := range local {
		localByID[o.ID] = o
	}

	var out []domain.Order
	seen := make(map[string]struct{})
	if caller.Authenticated() {
		fromRemote, err := q.remote.ListUserOrders(ctx, caller.UserID, limit)
		if err != nil {
			q.logRemote("list", err, zap.String("user_id", caller.UserID))
		}
		for _, o := range fromRemote {
			if !o.OwnedBy(*caller) {
				continue
			}
			if lo, ok := localByID[o.ID]; ok {
				o = settle(o, lo)
			}
			seen[o.ID] = struct{}{}
			out = append(out, o)
		}
	}

	for _, o := range local {
		if _, dup := seen[o.ID]; dup || !o.OwnedBy(*caller) {
			continue
		}
		seen[o.ID] = struct{}{}
		out = append(out, o)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []domain.Order{}
	}
	return out, nil
}

// UpdateStatus moves an order out of pending. The remote service is updated
// first and the local copy follows it. When the remote does not answer or
// does not know the order, only the local copy changes; reads then overlay
// that status onto the remote record.
func (q *Query) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if !status.Valid() {
		return domain.Order{}, ErrInvalidTransition
	}

	o, err := q.remote.UpdateOrderStatus(ctx, orderID, status)
	switch {
	case err == nil:
		if err := q.ledger.setStatus(ctx, orderID, o.Status); err != nil && !errors.Is(err, domain.ErrNotFound) {
			q.log.Warn("local status copy not updated", zap.String("order_id", orderID), zap.Error(err))
		}
		o.Source = domain.SourceRemote
	case errors.Is(err, remote.ErrRejected):
		return domain.Order{}, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	default:
		q.logRemote("update status", err, zap.String("order_id", orderID))
		if o, err = q.ledger.UpdateStatus(ctx, orderID, status); err != nil {
			return domain.Order{}, err
		}
	}
	q.log.Info("order status updated",
		zap.String("order_id", o.ID),
		zap.String("status", string(o.Status)),
		zap.String("source", string(o.Source)))
	return o, nil
}

// settle keeps a finished local status over a pending remote one. Status only
// ever leaves pending, so the finished value is the later one.
func settle(fromRemote, local domain.Order) domain.Order {
	if fromRemote.Status == domain.OrderPending && local.Status != domain.OrderPending && local.Status.Valid() {
		fromRemote.Status = local.Status
	}
	return fromRemote
}

func (q *Query) logRemote(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	switch {
	case errors.Is(err, remote.ErrRemoteDisabled), errors.Is(err, domain.ErrNotFound):
		q.log.Debug("remote order read skipped", fields...)
	default:
		q.log.Warn("remote order read failed, using local ledger", fields...)
	}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
