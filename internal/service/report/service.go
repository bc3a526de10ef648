// Package report summarizes the orders visible in the local ledger. The
// summary is best effort: orders that only reached the remote service are not
// counted.
package report

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

// ScopeLocal labels a summary computed from the local ledger only.
const ScopeLocal = "local"

type orderLister interface {
	List(ctx context.Context) ([]domain.Order, error)
}

type Summary struct {
	Scope             string                     `json:"scope"`
	Authoritative     bool                       `json:"authoritative"`
	OrderCount        int                        `json:"orderCount"`
	CountsByStatus    map[domain.OrderStatus]int `json:"countsByStatus"`
	GrandTotal        decimal.Decimal            `json:"grandTotal"`
	DistinctCustomers int                        `json:"distinctCustomers"`
}

type Service struct {
	orders orderLister
	log    *zap.Logger
}

func New(orders orderLister, log *zap.Logger) *Service {
	return &Service{orders: orders, log: logger.OrNop(log).Named("report")}
}

// Summarize never fails; an unreadable ledger yields an empty summary.
func (s *Service) Summarize(ctx context.Context) Summary {
	sum := Summary{
		Scope:      ScopeLocal,
		GrandTotal: decimal.Zero,
		CountsByStatus: map[domain.OrderStatus]int{
			domain.OrderPending:   0,
			domain.OrderCompleted: 0,
			domain.OrderCancelled: 0,
		},
	}
	orders, err := s.orders.List(ctx)
	if err != nil {
		s.log.Warn("order ledger unreadable, reporting empty summary", zap.Error(err))
		return sum
	}

	customers := make(map[string]struct{})
	for _, o := range orders {
		sum.OrderCount++
		sum.CountsByStatus[o.Status]++
		sum.GrandTotal = sum.GrandTotal.Add(o.GrandTotal)
		if key := customerKey(o); key != "" {
			customers[key] = struct{}{}
		}
	}
	sum.DistinctCustomers = len(customers)
	return sum
}

// customerKey identifies a customer by user id, then email, then session.
func customerKey(o domain.Order) string {
	switch {
	case o.UserID != "":
		return "user:" + o.UserID
	case strings.TrimSpace(o.Customer.Email) != "":
		return "email:" + strings.ToLower(strings.TrimSpace(o.Customer.Email))
	case o.SessionID != "":
		return "session:" + o.SessionID
	default:
		return ""
	}
}
