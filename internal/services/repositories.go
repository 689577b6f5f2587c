package services

import (
	"context"
	"time"

	"github.com/BradenHooton/warden/internal/models"
)

// UserRepository is the credential store. Create and Save hash a non-empty
// Password field before writing.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
}

// OneTimeTokenRepository stores hashed verification or password reset tokens.
type OneTimeTokenRepository interface {
	Create(ctx context.Context, token *models.OneTimeToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.OneTimeToken, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
}

// TokenBlacklist revokes issued JWTs.
type TokenBlacklist interface {
	Blacklist(ctx context.Context, token string) error
	BlacklistAllForUser(ctx context.Context, userID string, ttl time.Duration) error
	CheckRevoked(ctx context.Context, token string, claims *models.TokenClaims) error
}
