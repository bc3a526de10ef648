package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/kvstore"
	"storefront/internal/logger"
)

// Ledger is the local order backup. Each order is written to the global
// "orders" list and under its own "order:<id>" key.
type Ledger struct {
	store kvstore.Store
	mu    sync.Mutex
	log   *zap.Logger
}

func NewLedger(store kvstore.Store, log *zap.Logger) *Ledger {
	return &Ledger{store: store, log: logger.OrNop(log).Named("ledger")}
}

// Save upserts o into both local locations. It fails only when neither write
// succeeded.
func (l *Ledger) Save(ctx context.Context, o domain.Order) error {
	o.Source = ""
	l.mu.Lock()
	defer l.mu.Unlock()

	recErr := kvstore.SetJSON(ctx, l.store, kvstore.OrderKey(o.ID), o)
	listErr := l.upsertList(ctx, o)
	switch {
	case recErr != nil && listErr != nil:
		return fmt.Errorf("save order %s: %w", o.ID, errors.Join(recErr, listErr))
	case recErr != nil:
		l.log.Warn("order record write failed", zap.String("order_id", o.ID), zap.Error(recErr))
	case listErr != nil:
		l.log.Warn("order list write failed", zap.String("order_id", o.ID), zap.Error(listErr))
	}
	return nil
}

// Get returns the local copy of an order, preferring the per-order record and
// falling back to the global list.
func (l *Ledger) Get(ctx context.Context, orderID string) (domain.Order, error) {
	var rec localRecord
	err := kvstore.GetJSON(ctx, l.store, kvstore.OrderKey(orderID), &rec)
	if err == nil {
		if o, ok := rec.normalize(); ok {
			return o, nil
		}
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		l.log.Warn("order record unreadable", zap.String("order_id", orderID), zap.Error(err))
	}

	orders, err := l.List(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	for _, o := range orders {
		if o.ID == orderID {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrNotFound
}

// List decodes the global order list. Entries that cannot be decoded are
// skipped; an unreadable list reads as empty.
func (l *Ledger) List(ctx context.Context) ([]domain.Order, error) {
	raws, err := l.loadList(ctx)
	if err != nil {
		l.log.Warn("order list unreadable", zap.Error(err))
		return []domain.Order{}, nil
	}
	out := make([]domain.Order, 0, len(raws))
	for i, raw := range raws {
		var rec localRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			l.log.Warn("skipping undecodable order entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		if o, ok := rec.normalize(); ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// UpdateStatus moves a local order along pending -> completed|cancelled.
func (l *Ledger) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	o, err := l.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !o.Status.CanTransition(status) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, status)
	}
	o.Status = status
	if err := l.Save(ctx, o); err != nil {
		return domain.Order{}, err
	}
	o.Source = domain.SourceLocal
	return o, nil
}

// setStatus overwrites the status of a local copy without a transition check.
// It mirrors a change the remote service already accepted.
func (l *Ledger) setStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	o, err := l.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status == status {
		return nil
	}
	o.Status = status
	return l.Save(ctx, o)
}

func (l *Ledger) loadList(ctx context.Context) ([]json.RawMessage, error) {
	var raws []json.RawMessage
	if err := kvstore.GetJSON(ctx, l.store, kvstore.OrdersKey, &raws); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return raws, nil
}

func (l *Ledger) upsertList(ctx context.Context, o domain.Order) error {
	raws, err := l.loadList(ctx)
	if err != nil {
		// A corrupt list is replaced rather than blocking new backups.
		l.log.Warn("order list unreadable, rewriting", zap.Error(err))
		raws = nil
	}
	encoded, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", o.ID, err)
	}

	replaced := false
	for i, raw := range raws {
		var head struct {
			ID      string `json:"id"`
			OrderID string `json:"orderId"`
		}
		if json.Unmarshal(raw, &head) != nil {
			continue
		}
		if head.ID == o.ID || (head.ID == "" && head.OrderID == o.ID) {
			raws[i] = encoded
			replaced = true
			break
		}
	}
	if !replaced {
		raws = append(raws, encoded)
	}
	return kvstore.SetJSON(ctx, l.store, kvstore.OrdersKey, raws)
}

// localRecord accepts every shape the local ledger has held: shipping under
// "shipping" or "shippingAddress", totals as strings or numbers, "total" in
// place of "grandTotal", and createdAt as RFC 3339 or unix milliseconds.
type localRecord struct {
	ID              string                  `json:"id"`
	OrderID         string                  `json:"orderId"`
	SessionID       string                  `json:"sessionId"`
	UserID          string                  `json:"userId"`
	Customer        domain.Customer         `json:"customer"`
	Items           []localItem             `json:"items"`
	ShippingAddress *domain.ShippingAddress `json:"shippingAddress"`
	Shipping        *domain.ShippingAddress `json:"shipping"`
	PaymentSummary  *domain.PaymentSummary  `json:"paymentSummary"`
	Payment         *domain.PaymentSummary  `json:"payment"`
	Subtotal        domain.LooseAmount      `json:"subtotal"`
	Tax             domain.LooseAmount      `json:"tax"`
	GrandTotal      domain.LooseAmount      `json:"grandTotal"`
	Total           domain.LooseAmount      `json:"total"`
	Status          string                  `json:"status"`
	CreatedAt       domain.LooseTime        `json:"createdAt"`
}

type localItem struct {
	ProductID   string           `json:"productId"`
	Variant     string           `json:"variant"`
	Quantity    int              `json:"quantity"`
	UnitPrice   domain.Price     `json:"unitPrice"`
	Price       domain.Price     `json:"price"`
	DisplayName string           `json:"displayName"`
	Name        string           `json:"name"`
	AddedAt     domain.LooseTime `json:"addedAt"`
}

func (r localRecord) normalize() (domain.Order, bool) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		id = strings.TrimSpace(r.OrderID)
	}
	if id == "" {
		return domain.Order{}, false
	}

	items := make([]domain.CartItem, 0, len(r.Items))
	for _, it := range r.Items {
		price := it.UnitPrice
		if price == "" {
			price = it.Price
		}
		name := it.DisplayName
		if name == "" {
			name = it.Name
		}
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		items = append(items, domain.CartItem{
			ProductID:   it.ProductID,
			Variant:     it.Variant,
			Quantity:    qty,
			UnitPrice:   price,
			DisplayName: name,
			AddedAt:     it.AddedAt.Time,
		})
	}

	var shipping domain.ShippingAddress
	switch {
	case r.ShippingAddress != nil:
		shipping = *r.ShippingAddress
	case r.Shipping != nil:
		shipping = *r.Shipping
	}
	var payment domain.PaymentSummary
	switch {
	case r.PaymentSummary != nil:
		payment = *r.PaymentSummary
	case r.Payment != nil:
		payment = *r.Payment
	}

	subtotal := r.Subtotal.Decimal
	if !r.Subtotal.Present {
		subtotal = domain.SumItems(items)
	}
	grand := r.GrandTotal.Decimal
	switch {
	case r.GrandTotal.Present:
	case r.Total.Present:
		grand = r.Total.Decimal
	default:
		grand = subtotal.Add(r.Tax.Decimal)
	}

	sessionID := r.SessionID
	if sessionID == "" {
		sessionID = r.Customer.SessionID
	}
	userID := r.UserID
	if userID == "" {
		userID = r.Customer.UserID
	}
	customer := r.Customer
	customer.SessionID = sessionID
	customer.UserID = userID

	return domain.Order{
		ID:              id,
		SessionID:       sessionID,
		UserID:          userID,
		Customer:        customer,
		Items:           items,
		ShippingAddress: shipping,
		Payment:         payment,
		Subtotal:        subtotal,
		Tax:             r.Tax.Decimal,
		GrandTotal:      grand,
		Status:          domain.NormalizeStatus(r.Status),
		Source:          domain.SourceLocal,
		CreatedAt:       r.CreatedAt.Time,
	}, true
}
