package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/cache"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blacklistFixture struct {
	now       time.Time
	store     *cache.MemoryStore
	tokens    *TokenManager
	blacklist *Blacklist
}

func newBlacklistFixture() *blacklistFixture {
	f := &blacklistFixture{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }

	f.store = cache.NewMemoryStore()
	f.store.SetClock(clock)
	f.tokens = NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	f.tokens.SetClock(clock)
	f.blacklist = NewBlacklist(f.store, 0)
	f.blacklist.SetClock(clock)
	return f
}

func TestBlacklist_UntilNaturalExpiry(t *testing.T) {
	ctx := context.Background()
	f := newBlacklistFixture()

	token, err := f.tokens.SignAccess(testPayload)
	require.NoError(t, err)

	require.NoError(t, f.blacklist.Blacklist(ctx, token))

	ok, err := f.blacklist.IsBlacklisted(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)

	f.now = f.now.Add(14 * time.Minute)
	ok, _ = f.blacklist.IsBlacklisted(ctx, token)
	assert.True(t, ok, "entry should live while the token does")

	f.now = f.now.Add(2 * time.Minute)
	ok, _ = f.blacklist.IsBlacklisted(ctx, token)
	assert.False(t, ok, "entry should expire with the token")

	// Re-blacklisting an expired token is a harmless no-op.
	require.NoError(t, f.blacklist.Blacklist(ctx, token))
	ok, _ = f.blacklist.IsBlacklisted(ctx, token)
	assert.False(t, ok)
}

func TestBlacklist_InvalidToken(t *testing.T) {
	f := newBlacklistFixture()

	err := f.blacklist.Blacklist(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestBlacklist_AllForUser(t *testing.T) {
	ctx := context.Background()
	f := newBlacklistFixture()

	ok, err := f.blacklist.AreAllBlacklistedForUser(ctx, "user-123")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.blacklist.BlacklistAllForUser(ctx, "user-123", 0))

	ok, err = f.blacklist.AreAllBlacklistedForUser(ctx, "user-123")
	require.NoError(t, err)
	assert.True(t, ok)

	f.now = f.now.Add(DefaultUserRevocationTTL)
	ok, _ = f.blacklist.AreAllBlacklistedForUser(ctx, "user-123")
	assert.False(t, ok, "marker should expire after the default ttl")
}

func TestBlacklist_AllForUser_CustomTTL(t *testing.T) {
	ctx := context.Background()
	f := newBlacklistFixture()

	require.NoError(t, f.blacklist.BlacklistAllForUser(ctx, "user-123", time.Hour))

	f.now = f.now.Add(time.Hour)
	ok, _ := f.blacklist.AreAllBlacklistedForUser(ctx, "user-123")
	assert.False(t, ok)
}

func TestBlacklist_CheckRevoked(t *testing.T) {
	ctx := context.Background()
	f := newBlacklistFixture()

	before, err := f.tokens.SignAccess(testPayload)
	require.NoError(t, err)
	beforeClaims, err := f.tokens.VerifyAccess(before)
	require.NoError(t, err)

	assert.NoError(t, f.blacklist.CheckRevoked(ctx, before, beforeClaims))

	f.now = f.now.Add(time.Minute)
	require.NoError(t, f.blacklist.BlacklistAllForUser(ctx, testPayload.UserID, 0))
	assert.ErrorIs(t, f.blacklist.CheckRevoked(ctx, before, beforeClaims), models.ErrTokenRevoked)

	f.now = f.now.Add(time.Second)
	after, err := f.tokens.SignAccess(testPayload)
	require.NoError(t, err)
	afterClaims, err := f.tokens.VerifyAccess(after)
	require.NoError(t, err)
	assert.NoError(t, f.blacklist.CheckRevoked(ctx, after, afterClaims), "tokens issued after the marker stay valid")

	require.NoError(t, f.blacklist.Blacklist(ctx, after))
	assert.ErrorIs(t, f.blacklist.CheckRevoked(ctx, after, afterClaims), models.ErrTokenRevoked)
}

func TestBlacklist_LoginInSameInstantAsRevocation(t *testing.T) {
	ctx := context.Background()
	f := newBlacklistFixture()

	old, err := f.tokens.SignRefresh(testPayload)
	require.NoError(t, err)
	oldClaims, err := f.tokens.VerifyRefresh(old)
	require.NoError(t, err)

	f.now = f.now.Add(250 * time.Millisecond)
	require.NoError(t, f.blacklist.BlacklistAllForUser(ctx, testPayload.UserID, 0))

	// Same wall-clock second as the marker, on both sides of it.
	assert.Equal(t, oldClaims.IssuedAt.Unix(), f.now.Unix())
	assert.ErrorIs(t, f.blacklist.CheckRevoked(ctx, old, oldClaims), models.ErrTokenRevoked)

	fresh, err := f.tokens.SignRefresh(testPayload)
	require.NoError(t, err)
	freshClaims, err := f.tokens.VerifyRefresh(fresh)
	require.NoError(t, err)
	assert.NoError(t, f.blacklist.CheckRevoked(ctx, fresh, freshClaims))
}

func TestBlacklist_SecondsMarkerStillRevokes(t *testing.T) {
	ctx := context.Background()
	f := newBlacklistFixture()

	require.NoError(t, f.store.Set(ctx, userBlacklistPrefix+"user-123", "1772366400", time.Hour))

	revoked, err := f.blacklist.IsRevokedForUser(ctx, "user-123", f.now)
	require.NoError(t, err)
	assert.True(t, revoked, "issued in the marker's second")

	revoked, err = f.blacklist.IsRevokedForUser(ctx, "user-123", f.now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBlacklist_UnreadableMarkerFailsClosed(t *testing.T) {
	ctx := context.Background()
	f := newBlacklistFixture()

	require.NoError(t, f.store.Set(ctx, userBlacklistPrefix+"user-123", "garbage", time.Hour))

	revoked, err := f.blacklist.IsRevokedForUser(ctx, "user-123", f.now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestBlacklist_EntryTTLIsCapped(t *testing.T) {
	ctx := context.Background()
	f := newBlacklistFixture()
	f.blacklist.SetMaxEntryTTL(time.Hour)

	longLived := NewTokenManager(testSecret, time.Minute, 10*365*24*time.Hour)
	longLived.SetClock(func() time.Time { return f.now })
	token, err := longLived.SignRefresh(testPayload)
	require.NoError(t, err)

	require.NoError(t, f.blacklist.Blacklist(ctx, token))

	f.now = f.now.Add(time.Hour)
	ok, _ := f.blacklist.IsBlacklisted(ctx, token)
	assert.False(t, ok, "entry must not outlive the cap")
}

type failingStore struct{ cache.MemoryStore }

var errStoreDown = errors.New("store down")

func (*failingStore) Exists(context.Context, string) (bool, error) { return false, errStoreDown }

func TestBlacklist_StoreErrorsPropagate(t *testing.T) {
	b := NewBlacklist(&failingStore{}, 0)

	_, err := b.IsBlacklisted(context.Background(), "x")
	assert.ErrorIs(t, err, errStoreDown)
}
