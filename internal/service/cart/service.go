package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
	cartrepo "storefront/internal/repository/cart"
)

var (
	// ErrNoSession is returned when a mutation runs on a Store without a session.
	ErrNoSession = errors.New("cart requires a session")
	// ErrPersist wraps a snapshot write that did not reach the local store.
	ErrPersist = errors.New("cart snapshot not saved")
)

type cartRepo interface {
	Load(ctx context.Context, sessionID string) ([]domain.CartItem, error)
	Save(ctx context.Context, sessionID string, items []domain.CartItem) error
	Delete(ctx context.Context, sessionID string) error
}

// Service opens per-session cart Stores and merges carts across sessions.
type Service struct {
	repo cartRepo
	now  func() time.Time
	log  *zap.Logger
}

func New(repo cartrepo.Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, now: time.Now, log: logger.OrNop(log).Named("cart")}
}

// ItemInput is a product being added to a cart.
type ItemInput struct {
	ProductID   string       `json:"productId"`
	Variant     string       `json:"variant,omitempty"`
	UnitPrice   domain.Price `json:"unitPrice"`
	DisplayName string       `json:"displayName"`
}

// Open returns a Store initialized from the snapshot of sessionID.
func (s *Service) Open(ctx context.Context, sessionID string) *Store {
	st := &Store{repo: s.repo, now: s.now, log: s.log}
	st.Initialize(ctx, sessionID)
	return st
}

// Merge adds every line of from's cart into to's cart, summing quantities of
// matching (productId, variant) lines, then deletes from's snapshot.
func (s *Service) Merge(ctx context.Context, fromSessionID, toSessionID string) error {
	if fromSessionID == toSessionID {
		return nil
	}
	incoming, err := s.repo.Load(ctx, fromSessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load cart %s: %w", fromSessionID, err)
	}
	if len(incoming) == 0 {
		return s.repo.Delete(ctx, fromSessionID)
	}

	target := s.Open(ctx, toSessionID)
	target.mu.Lock()
	for _, it := range incoming {
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		if idx := target.indexOf(it.ProductID, it.Variant); idx >= 0 {
			target.items[idx].Quantity += it.Quantity
			continue
		}
		target.items = append(target.items, it)
	}
	err = target.persistLocked(ctx)
	target.mu.Unlock()
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, fromSessionID); err != nil {
		return fmt.Errorf("delete cart %s: %w", fromSessionID, err)
	}
	s.log.Info("cart merged",
		zap.String("from", fromSessionID),
		zap.String("to", toSessionID),
		zap.Int("lines", len(incoming)))
	return nil
}

// Store is the in-memory cart of one session. Every mutation writes a full
// snapshot through the repository, so a repeated write is harmless.
type Store struct {
	mu        sync.Mutex
	sessionID string
	items     []domain.CartItem
	repo      cartRepo
	now       func() time.Time
	log       *zap.Logger
}

// Initialize loads the snapshot for sessionID, replacing whatever the Store
// held for a previous session. A missing or unreadable snapshot yields an
// empty cart.
func (st *Store) Initialize(ctx context.Context, sessionID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessionID = sessionID
	st.items = nil
	if sessionID == "" {
		return
	}
	items, err := st.repo.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			st.log.Warn("cart snapshot unreadable, starting empty",
				zap.String("session_id", sessionID), zap.Error(err))
		}
		return
	}
	st.items = sanitize(items)
}

func (st *Store) SessionID() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessionID
}

// Items returns a copy of the current lines.
func (st *Store) Items() []domain.CartItem {
	st.mu.Lock()
	defer st.mu.Unlock()
	return domain.CloneItems(st.items)
}

// Count is the total quantity across lines.
func (st *Store) Count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return domain.Cart{Items: st.items}.ItemCount()
}

// Total is Σ unitPrice × quantity; malformed prices count as zero.
func (st *Store) Total() decimal.Decimal {
	st.mu.Lock()
	defer st.mu.Unlock()
	return domain.SumItems(st.items)
}

// Snapshot returns the cart as a value.
func (st *Store) Snapshot() domain.Cart {
	st.mu.Lock()
	defer st.mu.Unlock()
	return domain.Cart{SessionID: st.sessionID, Items: domain.CloneItems(st.items)}
}

// AddItem merges into an existing (productId, variant) line or appends a new
// one. A quantity below 1 adds a single unit.
func (st *Store) AddItem(ctx context.Context, in ItemInput, quantity int) ([]domain.CartItem, int, error) {
	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return nil, 0, fmt.Errorf("%w: productId required", domain.ErrInvalidInput)
	}
	if quantity < 1 {
		quantity = 1
	}
	variant := strings.TrimSpace(in.Variant)

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.sessionID == "" {
		return nil, 0, ErrNoSession
	}

	if idx := st.indexOf(productID, variant); idx >= 0 {
		st.items[idx].Quantity += quantity
	} else {
		name := strings.TrimSpace(in.DisplayName)
		if name == "" {
			name = productID
		}
		st.items = append(st.items, domain.CartItem{
			ProductID:   productID,
			Variant:     variant,
			Quantity:    quantity,
			UnitPrice:   in.UnitPrice,
			DisplayName: name,
			AddedAt:     st.now().UTC(),
		})
	}

	err := st.persistLocked(ctx)
	return domain.CloneItems(st.items), domain.Cart{Items: st.items}.ItemCount(), err
}

// UpdateQuantity sets a line's quantity, clamped to at least 1. Absent lines
// are left alone.
func (st *Store) UpdateQuantity(ctx context.Context, productID, variant string, quantity int) ([]domain.CartItem, error) {
	if quantity < 1 {
		quantity = 1
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.sessionID == "" {
		return nil, ErrNoSession
	}
	idx := st.indexOf(strings.TrimSpace(productID), strings.TrimSpace(variant))
	if idx < 0 {
		return domain.CloneItems(st.items), nil
	}
	st.items[idx].Quantity = quantity
	return domain.CloneItems(st.items), st.persistLocked(ctx)
}

// RemoveItem deletes a line. Removing an absent line is not an error.
func (st *Store) RemoveItem(ctx context.Context, productID, variant string) ([]domain.CartItem, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.sessionID == "" {
		return nil, ErrNoSession
	}
	idx := st.indexOf(strings.TrimSpace(productID), strings.TrimSpace(variant))
	if idx < 0 {
		return domain.CloneItems(st.items), nil
	}
	st.items = append(st.items[:idx], st.items[idx+1:]...)
	return domain.CloneItems(st.items), st.persistLocked(ctx)
}

// Clear empties the cart and deletes its snapshot so it cannot be reloaded.
func (st *Store) Clear(ctx context.Context) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.items = nil
	if st.sessionID == "" {
		return nil
	}
	if err := st.repo.Delete(ctx, st.sessionID); err != nil {
		st.log.Warn("cart snapshot delete failed", zap.String("session_id", st.sessionID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

func (st *Store) indexOf(productID, variant string) int {
	for i, it := range st.items {
		if it.SameLine(productID, variant) {
			return i
		}
	}
	return -1
}

func (st *Store) persistLocked(ctx context.Context) error {
	if err := st.repo.Save(ctx, st.sessionID, st.items); err != nil {
		st.log.Warn("cart snapshot save failed", zap.String("session_id", st.sessionID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// sanitize drops lines without a product and lifts stored quantities to 1.
func sanitize(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.ProductID) == "" {
			continue
		}
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		out = append(out, it)
	}
	return out
}
