package session

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/kvstore"
)

type stubMerger struct {
	calls [][2]string
	err   error
}

func (m *stubMerger) Merge(_ context.Context, from, to string) error {
	m.calls = append(m.calls, [2]string{from, to})
	return m.err
}

func newTestService(t *testing.T) (*Service, *kvstore.Memory) {
	t.Helper()
	store := kvstore.NewMemory()
	svc, err := New(store, "test-secret", time.Hour, nil)
	require.NoError(t, err)
	return svc, store
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(kvstore.NewMemory(), "  ", time.Hour, nil)
	assert.Error(t, err)
}

func TestGetOrCreate_MintsGuest(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	identity, token, created, err := svc.GetOrCreate(ctx, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, token)
	assert.Equal(t, domain.SessionGuest, identity.Kind)
	assert.Regexp(t, regexp.MustCompile(`^guest_\d+_[0-9a-f]{12}$`), identity.ID)

	_, err = store.Get(ctx, kvstore.SessionKey(identity.ID))
	require.NoError(t, err, "guest identity should be persisted")

	again, sameToken, created, err := svc.GetOrCreate(ctx, token)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, token, sameToken)
	assert.Equal(t, identity.ID, again.ID)
}

func TestGetOrCreate_UnknownSessionMintsNew(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	identity, token, _, err := svc.GetOrCreate(ctx, "")
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, kvstore.SessionKey(identity.ID)))

	fresh, freshToken, created, err := svc.GetOrCreate(ctx, token)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, identity.ID, fresh.ID)
	assert.NotEqual(t, token, freshToken)
}

func TestResolve(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = svc.Resolve(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrNoSession)

	other, err := New(kvstore.NewMemory(), "other-secret", time.Hour, nil)
	require.NoError(t, err)
	_, foreign, _, err := other.GetOrCreate(ctx, "")
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, foreign)
	assert.ErrorIs(t, err, ErrNoSession, "tokens signed with another secret are rejected")
}

func TestResolve_ExpiredToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()
	svc.now = func() time.Time { return now }

	_, token, _, err := svc.GetOrCreate(ctx, "")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestPromote_MergesGuestCart(t *testing.T) {
	svc, store := newTestService(t)
	merger := &stubMerger{}
	svc.SetCartMerger(merger)
	ctx := context.Background()

	guest, _, _, err := svc.GetOrCreate(ctx, "")
	require.NoError(t, err)

	user, token, err := svc.Promote(ctx, guest, domain.Profile{UserID: "42", Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionAuthenticated, user.Kind)
	assert.Equal(t, "user_42", user.ID)
	assert.True(t, user.Authenticated())

	require.Len(t, merger.calls, 1)
	assert.Equal(t, [2]string{guest.ID, "user_42"}, merger.calls[0])

	_, err = store.Get(ctx, kvstore.SessionKey(guest.ID))
	assert.ErrorIs(t, err, kvstore.ErrNotFound, "guest session record is retired after merge")

	resolved, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", resolved.Email)
}

func TestPromote_MergeFailureKeepsGuest(t *testing.T) {
	svc, store := newTestService(t)
	svc.SetCartMerger(&stubMerger{err: errors.New("store down")})
	ctx := context.Background()

	guest, _, _, err := svc.GetOrCreate(ctx, "")
	require.NoError(t, err)

	_, _, err = svc.Promote(ctx, guest, domain.Profile{UserID: "42"})
	require.NoError(t, err)

	_, err = store.Get(ctx, kvstore.SessionKey(guest.ID))
	assert.NoError(t, err)
}

func TestPromote_FromAnotherUserDoesNotMerge(t *testing.T) {
	svc, _ := newTestService(t)
	merger := &stubMerger{}
	svc.SetCartMerger(merger)
	ctx := context.Background()

	guest, _, _, err := svc.GetOrCreate(ctx, "")
	require.NoError(t, err)
	alice, _, err := svc.Promote(ctx, guest, domain.Profile{UserID: "1", Email: "alice@example.com"})
	require.NoError(t, err)
	require.Len(t, merger.calls, 1)

	bob, token, err := svc.Promote(ctx, alice, domain.Profile{UserID: "2", Email: "bob@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "user_2", bob.ID)
	assert.Len(t, merger.calls, 1, "alice's cart must not move into bob's")

	resolved, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", resolved.Email)
}

func TestPromote_RequiresUserID(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Promote(context.Background(), nil, domain.Profile{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDemote(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, _, err := svc.Promote(ctx, nil, domain.Profile{UserID: "7"})
	require.NoError(t, err)

	guest, token, err := svc.Demote(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionGuest, guest.Kind)
	assert.NotEqual(t, user.ID, guest.ID)

	resolved, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, guest.ID, resolved.ID)
}

func TestGuestIDsAreDistinct(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		id := GuestID(now)
		_, dup := seen[id]
		require.False(t, dup, "duplicate guest id %s", id)
		seen[id] = struct{}{}
	}
}
