// Package session is the identity provider: it mints guest identities,
// promotes them to authenticated ones and resolves the identity behind a
// client's session token.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/kvstore"
	"storefront/internal/logger"
)

// ErrNoSession means the token is absent, invalid, or names an unknown session.
var ErrNoSession = errors.New("no session")

// CartMerger moves cart lines from one session to another.
type CartMerger interface {
	Merge(ctx context.Context, fromSessionID, toSessionID string) error
}

type Service struct {
	store  kvstore.Store
	tokens *tokenManager
	ttl    time.Duration
	merger CartMerger
	now    func() time.Time
	log    *zap.Logger
}

func New(store kvstore.Store, secret string, ttl time.Duration, log *zap.Logger) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errEmptySecret
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	s := &Service{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		log:   logger.OrNop(log).Named("session"),
	}
	s.tokens = newTokenManager([]byte(secret), func() time.Time { return s.now() })
	return s, nil
}

// SetCartMerger registers the collaborator that carries guest cart lines into
// the authenticated cart on Promote.
func (s *Service) SetCartMerger(m CartMerger) {
	s.merger = m
}

// Resolve returns the identity behind token without creating one.
func (s *Service) Resolve(ctx context.Context, token string) (*domain.SessionIdentity, error) {
	sessionID, ok := s.tokens.Validate(token)
	if !ok {
		return nil, ErrNoSession
	}
	var identity domain.SessionIdentity
	if err := kvstore.GetJSON(ctx, s.store, kvstore.SessionKey(sessionID), &identity); err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			s.log.Warn("session record unreadable", zap.String("session_id", sessionID), zap.Error(err))
		}
		return nil, ErrNoSession
	}
	return &identity, nil
}

// GetOrCreate returns the identity behind token, or mints and persists a new
// guest identity. created reports whether a new token was issued.
func (s *Service) GetOrCreate(ctx context.Context, token string) (identity *domain.SessionIdentity, newToken string, created bool, err error) {
	if existing, err := s.Resolve(ctx, token); err == nil {
		return existing, token, false, nil
	}
	identity, newToken, err = s.mintGuest(ctx)
	if err != nil {
		return nil, "", false, err
	}
	return identity, newToken, true, nil
}

// Promote replaces the current identity with an authenticated one for the
// verified profile. Only a guest cart is merged into the user's cart; another
// user's cart stays where it is.
func (s *Service) Promote(ctx context.Context, current *domain.SessionIdentity, profile domain.Profile) (*domain.SessionIdentity, string, error) {
	if strings.TrimSpace(profile.UserID) == "" {
		return nil, "", fmt.Errorf("%w: user id required", domain.ErrInvalidInput)
	}
	identity := &domain.SessionIdentity{
		Kind:      domain.SessionAuthenticated,
		ID:        AuthenticatedID(profile.UserID),
		CreatedAt: s.now().UTC(),
		UserID:    profile.UserID,
		Name:      profile.Name,
		Email:     profile.Email,
	}
	token, err := s.persist(ctx, identity)
	if err != nil {
		return nil, "", err
	}

	if current != nil && current.Kind == domain.SessionGuest && current.ID != identity.ID && s.merger != nil {
		if err := s.merger.Merge(ctx, current.ID, identity.ID); err != nil {
			// The guest snapshot is left in place so nothing is lost.
			s.log.Warn("cart merge failed",
				zap.String("from", current.ID),
				zap.String("to", identity.ID),
				zap.Error(err))
		} else if err := s.store.Delete(ctx, kvstore.SessionKey(current.ID)); err != nil {
			s.log.Warn("delete guest session", zap.String("session_id", current.ID), zap.Error(err))
		}
	}
	s.log.Info("session promoted", zap.String("session_id", identity.ID))
	return identity, token, nil
}

// Demote ends an authenticated session by minting a fresh guest identity. The
// user's cart stays persisted under the authenticated key.
func (s *Service) Demote(ctx context.Context) (*domain.SessionIdentity, string, error) {
	return s.mintGuest(ctx)
}

// TTLSeconds exposes the token lifetime in seconds.
func (s *Service) TTLSeconds() int {
	return int(s.ttl.Seconds())
}

func (s *Service) mintGuest(ctx context.Context) (*domain.SessionIdentity, string, error) {
	now := s.now().UTC()
	identity := &domain.SessionIdentity{
		Kind:      domain.SessionGuest,
		ID:        GuestID(now),
		CreatedAt: now,
	}
	token, err := s.persist(ctx, identity)
	if err != nil {
		return nil, "", err
	}
	s.log.Debug("guest session minted", zap.String("session_id", identity.ID))
	return identity, token, nil
}

func (s *Service) persist(ctx context.Context, identity *domain.SessionIdentity) (string, error) {
	if err := kvstore.SetJSON(ctx, s.store, kvstore.SessionKey(identity.ID), identity); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}
	token, err := s.tokens.Issue(identity.ID, string(identity.Kind), s.ttl)
	if err != nil {
		return "", fmt.Errorf("issue session token: %w", err)
	}
	return token, nil
}

// GuestID builds guest_<unixMillis>_<random>.
func GuestID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("guest_%d_%s", now.UnixMilli(), suffix)
}

// AuthenticatedID is the stable session id of a signed-in user.
func AuthenticatedID(userID string) string {
	return "user_" + userID
}
