package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
)

// tokenErrors names the failures reported by a one-time token workflow.
type tokenErrors struct {
	invalid *models.Error
	expired *models.Error
}

// issueOneTimeToken replaces any tokens the user holds with a fresh one.
// It returns the raw token for the email link; only its hash is stored.
func issueOneTimeToken(ctx context.Context, repo OneTimeTokenRepository, user *models.User, ttl time.Duration, now time.Time) (string, *models.OneTimeToken, error) {
	raw, err := pkgauth.GenerateOpaqueToken()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if _, err := repo.DeleteByUserID(ctx, user.ID); err != nil {
		return "", nil, fmt.Errorf("failed to delete previous tokens: %w", err)
	}

	token := &models.OneTimeToken{
		UserID:    user.ID,
		Email:     user.Email,
		TokenHash: pkgauth.HashOpaqueToken(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := repo.Create(ctx, token); err != nil {
		return "", nil, fmt.Errorf("failed to store token: %w", err)
	}

	return raw, token, nil
}

// lookupOneTimeToken finds a live token. Expired rows are deleted on sight.
func lookupOneTimeToken(ctx context.Context, repo OneTimeTokenRepository, raw string, now time.Time, errs tokenErrors) (*models.OneTimeToken, error) {
	if raw == "" {
		return nil, errs.invalid
	}

	token, err := repo.GetByTokenHash(ctx, pkgauth.HashOpaqueToken(raw))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, errs.invalid
		}
		return nil, models.Internal("TOKEN_LOOKUP_ERROR", "An unexpected error occurred", err)
	}

	if token.IsExpired(now) {
		if err := repo.DeleteByID(ctx, token.ID); err != nil {
			return nil, models.Internal("TOKEN_LOOKUP_ERROR", "An unexpected error occurred", err)
		}
		return nil, errs.expired
	}

	return token, nil
}
