package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

var resetTokenErrors = tokenErrors{
	invalid: models.NewError(models.ErrOneTimeTokenInvalid, "INVALID_TOKEN", "Invalid or expired reset token"),
	expired: models.NewError(models.ErrOneTimeTokenExpired, "TOKEN_EXPIRED", "Reset token has expired. Please request a new one."),
}

// PasswordResetService authorizes a password change through an emailed
// single-use token.
type PasswordResetService struct {
	users       UserRepository
	tokens      OneTimeTokenRepository
	blacklist   TokenBlacklist
	mailer      Mailer
	composer    *EmailComposer
	ttl         time.Duration
	hideLocked  bool
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

// PasswordResetOptions tunes the anonymous request path.
type PasswordResetOptions struct {
	TTL time.Duration
	// HideLockedAccounts answers locked accounts with the generic success
	// instead of ACCOUNT_LOCKED.
	HideLockedAccounts bool
}

func NewPasswordResetService(
	users UserRepository,
	tokens OneTimeTokenRepository,
	blacklist TokenBlacklist,
	mailer Mailer,
	composer *EmailComposer,
	opts PasswordResetOptions,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *PasswordResetService {
	return &PasswordResetService{
		users:       users,
		tokens:      tokens,
		blacklist:   blacklist,
		mailer:      mailer,
		composer:    composer,
		ttl:         opts.TTL,
		hideLocked:  opts.HideLockedAccounts,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

func (s *PasswordResetService) SetClock(now func() time.Time) {
	s.now = now
}

// Request emails a reset link. Unknown and deleted accounts get the same
// nil result as a real send so callers cannot probe for accounts.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return storeError("PASSWORD_RESET_ERROR", err)
	}

	switch {
	case user.IsDeleted():
		s.logger.Info("password reset requested for deleted account", slog.String("user_id", user.ID))
		return nil
	case user.IsLocked():
		s.auditLogger.LogTokenEvent(ctx, pkglogger.AuditEvent{
			EventType:     "password_reset_requested",
			UserID:        user.ID,
			Email:         user.Email,
			FailureReason: "account_locked",
		})
		if s.hideLocked {
			return nil
		}
		return errAccountLocked
	}

	raw, _, err := issueOneTimeToken(ctx, s.tokens, user, s.ttl, s.now().UTC())
	if err != nil {
		s.logger.Error("failed to issue reset token", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.Internal("PASSWORD_RESET_ERROR", "Failed to send password reset email", err)
	}

	if err := s.mailer.Send(ctx, s.composer.PasswordReset(user.Email, raw, s.ttl)); err != nil {
		s.logger.Error("password reset email not sent", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.Internal("PASSWORD_RESET_ERROR", "Failed to send password reset email", err)
	}

	s.auditLogger.LogTokenEvent(ctx, pkglogger.AuditEvent{
		EventType: "password_reset_requested",
		UserID:    user.ID,
		Email:     user.Email,
		Success:   true,
	})
	return nil
}

// VerifyToken reports the email a live token belongs to without consuming it.
func (s *PasswordResetService) VerifyToken(ctx context.Context, raw string) (string, error) {
	token, err := lookupOneTimeToken(ctx, s.tokens, strings.TrimSpace(raw), s.now(), resetTokenErrors)
	if err != nil {
		return "", err
	}
	return token.Email, nil
}

// Reset sets a new password for the token's owner, deletes every reset token
// the owner holds and revokes the owner's outstanding sessions.
func (s *PasswordResetService) Reset(ctx context.Context, raw, newPassword string) (*models.User, error) {
	token, err := lookupOneTimeToken(ctx, s.tokens, strings.TrimSpace(raw), s.now(), resetTokenErrors)
	if err != nil {
		s.auditLogger.LogTokenEvent(ctx, pkglogger.AuditEvent{
			EventType:     "password_reset_failed",
			FailureReason: failureCode(err),
		})
		return nil, err
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, storeError("PASSWORD_RESET_ERROR", err)
	}

	switch {
	case user.IsLocked():
		return nil, errAccountLocked
	case user.IsDeleted():
		return nil, errAccountDeleted
	}

	user.Password = newPassword
	if err := s.users.Save(ctx, user); err != nil {
		return nil, storeError("PASSWORD_RESET_ERROR", err)
	}

	if _, err := s.tokens.DeleteByUserID(ctx, user.ID); err != nil {
		s.logger.Error("failed to delete reset tokens", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.Internal("PASSWORD_RESET_ERROR", "Failed to reset password", err)
	}

	if err := s.blacklist.BlacklistAllForUser(ctx, user.ID, 0); err != nil {
		s.logger.Error("failed to revoke sessions after password reset", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	s.logger.Info("password reset", slog.String("user_id", user.ID))
	s.auditLogger.LogTokenEvent(ctx, pkglogger.AuditEvent{
		EventType: "password_reset",
		UserID:    user.ID,
		Email:     user.Email,
		Success:   true,
	})
	return user, nil
}
