// Package order submits orders with a remote-first, local-backup write and
// reads them back from whichever store has them.
package order

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/kvstore"
	"storefront/internal/logger"
	"storefront/internal/remote"
)

type remoteWriter interface {
	CreateOrder(ctx context.Context, o domain.Order) (string, error)
}

// Cart is the part of a session cart a checkout needs.
type Cart interface {
	Items() []domain.CartItem
	Clear(ctx context.Context) error
}

type SubmitterConfig struct {
	TaxRate        decimal.Decimal
	IdempotencyTTL time.Duration
	// PendingTTL bounds how long an in-flight marker blocks retries. It should
	// cover one remote attempt.
	PendingTTL time.Duration
}

// Result describes a finished checkout.
type Result struct {
	Order          domain.Order `json:"order"`
	RemoteAccepted bool         `json:"remoteAccepted"`
	Replayed       bool         `json:"replayed"`
}

type Submitter struct {
	remote  remoteWriter
	ledger  *Ledger
	markers kvstore.Store
	taxRate    decimal.Decimal
	ttl        time.Duration
	pendingTTL time.Duration
	now     func() time.Time
	newID   func(time.Time) string
	log     *zap.Logger
}

func NewSubmitter(rw remoteWriter, ledger *Ledger, markers kvstore.Store, cfg SubmitterConfig, log *zap.Logger) *Submitter {
	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	pendingTTL := cfg.PendingTTL
	if pendingTTL <= 0 {
		pendingTTL = 30 * time.Second
	}
	if pendingTTL > ttl {
		pendingTTL = ttl
	}
	return &Submitter{
		remote:     rw,
		ledger:     ledger,
		markers:    markers,
		taxRate:    cfg.TaxRate,
		ttl:        ttl,
		pendingTTL: pendingTTL,
		now:        time.Now,
		newID:      NewOrderID,
		log:        logger.OrNop(log).Named("checkout"),
	}
}

// NewOrderID returns ORD-<unix millis>-<8 random hex>. The random suffix keeps
// ids distinct within the same millisecond without a central counter.
func NewOrderID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "ORD-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix
}

type markerState string

const (
	markerPending markerState = "pending"
	markerDone    markerState = "done"
)

type checkoutMarker struct {
	State          markerState   `json:"state"`
	Order          *domain.Order `json:"order,omitempty"`
	RemoteAccepted bool          `json:"remoteAccepted,omitempty"`
}

// Submit turns the session cart into an order. The remote service gets one
// attempt; the local ledger is written regardless. The cart is cleared only
// after at least one copy of the order is stored.
//
// Everything after the remote attempt runs detached from ctx, so a caller that
// goes away mid-submission still leaves the local backup behind.
func (s *Submitter) Submit(ctx context.Context, identity *domain.SessionIdentity, cart Cart, in CheckoutInput) (Result, error) {
	if identity == nil || identity.ID == "" {
		return Result{}, domain.ErrUnauthorized
	}
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	items := domain.CloneItems(cart.Items())

	key := in.IdempotencyKey
	if key == "" {
		if len(items) == 0 {
			return Result{}, ErrEmptyCart
		}
		key = deriveKey(identity.ID, items)
	}
	markerKey := kvstore.CheckoutKey(identity.ID, key)
	held, replay, err := s.acquire(ctx, markerKey)
	if err != nil {
		return Result{}, err
	}
	if replay != nil {
		s.log.Info("checkout replayed", zap.String("session_id", identity.ID), zap.String("order_id", replay.Order.ID))
		return *replay, nil
	}
	if len(items) == 0 {
		if held {
			s.release(context.WithoutCancel(ctx), markerKey)
		}
		return Result{}, ErrEmptyCart
	}

	o := s.build(identity, items, in)

	remoteAccepted := false
	if remoteID, err := s.remote.CreateOrder(ctx, o); err != nil {
		s.logRemoteFailure(o.ID, err)
	} else {
		o.ID = remoteID
		remoteAccepted = true
	}

	persistCtx := context.WithoutCancel(ctx)
	if err := s.ledger.Save(persistCtx, o); err != nil {
		if !remoteAccepted {
			s.log.Error("order not stored anywhere", zap.String("order_id", o.ID), zap.Error(err))
			if held {
				s.release(persistCtx, markerKey)
			}
			return Result{}, fmt.Errorf("%w: %v", ErrPersistFailed, err)
		}
		s.log.Warn("local order backup failed", zap.String("order_id", o.ID), zap.Error(err))
	}

	if err := cart.Clear(persistCtx); err != nil {
		s.log.Warn("cart not cleared after checkout", zap.String("session_id", identity.ID), zap.Error(err))
	}

	o.Source = domain.SourceLocal
	if remoteAccepted {
		o.Source = domain.SourceRemote
	}
	res := Result{Order: o, RemoteAccepted: remoteAccepted}
	if held {
		s.complete(persistCtx, markerKey, res)
	}
	s.log.Info("order submitted",
		zap.String("order_id", o.ID),
		zap.String("session_id", identity.ID),
		zap.Bool("remote_accepted", remoteAccepted),
		zap.String("grand_total", o.GrandTotal.StringFixed(2)))
	return res, nil
}

func (s *Submitter) build(identity *domain.SessionIdentity, items []domain.CartItem, in CheckoutInput) domain.Order {
	now := s.now().UTC()
	subtotal := domain.SumItems(items)
	tax := subtotal.Mul(s.taxRate).Round(2)

	var userID string
	if identity.Authenticated() {
		userID = identity.UserID
	}
	return domain.Order{
		ID:        s.newID(now),
		SessionID: identity.ID,
		UserID:    userID,
		Customer: domain.Customer{
			UserID:    userID,
			SessionID: identity.ID,
			Email:     in.Customer.Email,
			FirstName: in.Customer.FirstName,
			LastName:  in.Customer.LastName,
			Phone:     in.Customer.Phone,
		},
		Items:           items,
		ShippingAddress: in.shippingAddress(),
		Payment:         in.paymentSummary(),
		Subtotal:        subtotal,
		Tax:             tax,
		GrandTotal:      subtotal.Add(tax),
		Status:          domain.OrderPending,
		CreatedAt:       now,
	}
}

// acquire claims the idempotency marker. held is false when the marker store
// is unavailable; the checkout then proceeds unguarded.
func (s *Submitter) acquire(ctx context.Context, key string) (held bool, replay *Result, err error) {
	pending, _ := json.Marshal(checkoutMarker{State: markerPending})
	ok, err := s.markers.SetNX(ctx, key, string(pending), s.pendingTTL)
	if err != nil {
		s.log.Warn("idempotency marker unavailable", zap.String("key", key), zap.Error(err))
		return false, nil, nil
	}
	if ok {
		return true, nil, nil
	}

	var m checkoutMarker
	if err := kvstore.GetJSON(ctx, s.markers, key, &m); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return false, nil, ErrSubmissionInFlight
		}
		s.log.Warn("idempotency marker unreadable", zap.String("key", key), zap.Error(err))
		return false, nil, ErrSubmissionInFlight
	}
	if m.State == markerDone && m.Order != nil {
		return false, &Result{Order: *m.Order, RemoteAccepted: m.RemoteAccepted, Replayed: true}, nil
	}
	return false, nil, ErrSubmissionInFlight
}

func (s *Submitter) complete(ctx context.Context, key string, res Result) {
	o := res.Order
	raw, err := json.Marshal(checkoutMarker{State: markerDone, Order: &o, RemoteAccepted: res.RemoteAccepted})
	if err == nil {
		err = s.markers.SetEX(ctx, key, string(raw), s.ttl)
	}
	if err != nil {
		s.log.Warn("idempotency marker not finalized", zap.String("key", key), zap.Error(err))
	}
}

func (s *Submitter) release(ctx context.Context, key string) {
	if err := s.markers.Delete(ctx, key); err != nil {
		s.log.Warn("idempotency marker not released", zap.String("key", key), zap.Error(err))
	}
}

func (s *Submitter) logRemoteFailure(orderID string, err error) {
	if errors.Is(err, remote.ErrRemoteDisabled) {
		s.log.Debug("remote order service disabled, using local backup", zap.String("order_id", orderID))
		return
	}
	s.log.Warn("remote order write failed, using local backup", zap.String("order_id", orderID), zap.Error(err))
}

// deriveKey fingerprints the cart. addedAt is part of the fingerprint so the
// same products bought again later produce a new key.
func deriveKey(sessionID string, items []domain.CartItem) string {
	h := sha256.New()
	h.Write([]byte(sessionID))
	for _, it := range items {
		fmt.Fprintf(h, "|%s|%s|%d|%s|%d", it.ProductID, it.Variant, it.Quantity, it.UnitPrice, it.AddedAt.UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}
