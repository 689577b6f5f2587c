package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/BradenHooton/warden/internal/cache"
	"github.com/BradenHooton/warden/internal/models"
)

const (
	blacklistPrefix     = "token:blacklist:"
	userBlacklistPrefix = "token:blacklist:user:"

	// DefaultUserRevocationTTL is how long a revoke-all marker outlives its creation.
	DefaultUserRevocationTTL = 7 * 24 * time.Hour

	// Markers written before the switch to milliseconds hold unix seconds.
	// Anything below this bound cannot be a millisecond timestamp after 1973.
	legacySecondsBound = 100_000_000_000
)

// Blacklist records revoked tokens in the ephemeral store. Per-token entries
// expire with the token they shadow; per-user markers hold the revocation
// instant so that tokens issued afterwards are unaffected.
type Blacklist struct {
	store    cache.Store
	userTTL  time.Duration
	maxEntry time.Duration
	now      func() time.Time
}

func NewBlacklist(store cache.Store, userTTL time.Duration) *Blacklist {
	if userTTL <= 0 {
		userTTL = DefaultUserRevocationTTL
	}
	return &Blacklist{store: store, userTTL: userTTL, maxEntry: userTTL, now: time.Now}
}

func (b *Blacklist) SetClock(now func() time.Time) {
	b.now = now
}

// SetMaxEntryTTL bounds how long a single-token entry may live. It should be
// the longest lifetime the service ever signs, the refresh token expiry.
func (b *Blacklist) SetMaxEntryTTL(d time.Duration) {
	if d > 0 {
		b.maxEntry = d
	}
}

// Blacklist revokes a single token until its natural expiry, capped at the
// maximum entry lifetime. Tokens that are already expired are ignored.
func (b *Blacklist) Blacklist(ctx context.Context, token string) error {
	claims := DecodeUnsafe(token)
	if claims == nil || claims.ExpiresAt == nil {
		return models.ErrTokenInvalid
	}

	ttl := claims.ExpiresAt.Time.Sub(b.now())
	if ttl <= 0 {
		return nil
	}
	if ttl > b.maxEntry {
		ttl = b.maxEntry
	}

	if err := b.store.Set(ctx, blacklistPrefix+token, "1", ttl); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (b *Blacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	ok, err := b.store.Exists(ctx, blacklistPrefix+token)
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return ok, nil
}

// BlacklistAllForUser revokes every token issued to the user up to now.
// A ttl of zero uses the configured default.
func (b *Blacklist) BlacklistAllForUser(ctx context.Context, userID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = b.userTTL
	}

	revokedAt := strconv.FormatInt(b.now().UnixMilli(), 10)
	if err := b.store.Set(ctx, userBlacklistPrefix+userID, revokedAt, ttl); err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}

func (b *Blacklist) AreAllBlacklistedForUser(ctx context.Context, userID string) (bool, error) {
	ok, err := b.store.Exists(ctx, userBlacklistPrefix+userID)
	if err != nil {
		return false, fmt.Errorf("failed to check user revocation: %w", err)
	}
	return ok, nil
}

// IsRevokedForUser reports whether a token issued at issuedAt falls under the
// user's revoke-all marker. Only tokens issued strictly before the marker are
// revoked, so a session opened right after a reset or a logout-all survives.
func (b *Blacklist) IsRevokedForUser(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	val, err := b.store.Get(ctx, userBlacklistPrefix+userID)
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user revocation: %w", err)
	}

	millis, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// Unreadable marker: fail closed.
		return true, nil
	}

	if millis < legacySecondsBound {
		// Second-granular markers keep the old inclusive semantics.
		return issuedAt.Unix() <= millis, nil
	}

	return issuedAt.Before(time.UnixMilli(millis)), nil
}

// CheckRevoked combines the per-token and per-user checks for a token that
// has already been verified.
func (b *Blacklist) CheckRevoked(ctx context.Context, token string, claims *models.TokenClaims) error {
	revoked, err := b.IsBlacklisted(ctx, token)
	if err != nil {
		return err
	}
	if revoked {
		return models.ErrTokenRevoked
	}

	revoked, err = b.IsRevokedForUser(ctx, claims.UserID, claims.IssuedAtTime())
	if err != nil {
		return err
	}
	if revoked {
		return models.ErrTokenRevoked
	}

	return nil
}
