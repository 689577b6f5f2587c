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

var verificationTokenErrors = tokenErrors{
	invalid: models.NewError(models.ErrOneTimeTokenInvalid, "INVALID_TOKEN", "Invalid or expired verification token"),
	expired: models.NewError(models.ErrOneTimeTokenExpired, "TOKEN_EXPIRED", "Verification token has expired. Please request a new one."),
}

// VerificationService proves email ownership with single-use tokens.
type VerificationService struct {
	users       UserRepository
	tokens      OneTimeTokenRepository
	mailer      Mailer
	composer    *EmailComposer
	ttl         time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

func NewVerificationService(
	users UserRepository,
	tokens OneTimeTokenRepository,
	mailer Mailer,
	composer *EmailComposer,
	ttl time.Duration,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *VerificationService {
	return &VerificationService{
		users:       users,
		tokens:      tokens,
		mailer:      mailer,
		composer:    composer,
		ttl:         ttl,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

func (s *VerificationService) SetClock(now func() time.Time) {
	s.now = now
}

// Issue creates a verification token for user and emails the link. A failed
// send is logged only: the token stays valid and the user can ask again.
func (s *VerificationService) Issue(ctx context.Context, user *models.User) error {
	if user.EmailVerified {
		return errAlreadyVerified
	}

	now := s.now().UTC()
	raw, token, err := issueOneTimeToken(ctx, s.tokens, user, s.ttl, now)
	if err != nil {
		s.logger.Error("failed to issue verification token", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.Internal("VERIFICATION_ERROR", "Failed to send verification email", err)
	}

	user.VerificationToken = &token.TokenHash
	user.VerificationTokenExpires = &token.ExpiresAt
	if err := s.users.Save(ctx, user); err != nil {
		s.logger.Error("failed to record verification token on user", slog.String("user_id", user.ID), slog.Any("error", err))
		return storeError("VERIFICATION_ERROR", err)
	}

	if err := s.mailer.Send(ctx, s.composer.Verification(user.Email, raw, s.ttl)); err != nil {
		s.logger.Warn("verification email not sent", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	s.auditLogger.LogTokenEvent(ctx, pkglogger.AuditEvent{
		EventType: "verification_token_issued",
		UserID:    user.ID,
		Email:     user.Email,
		Success:   true,
	})
	return nil
}

// Consume marks the owner of raw as verified and deletes the token.
func (s *VerificationService) Consume(ctx context.Context, raw string) (*models.User, error) {
	token, err := lookupOneTimeToken(ctx, s.tokens, strings.TrimSpace(raw), s.now(), verificationTokenErrors)
	if err != nil {
		s.auditLogger.LogTokenEvent(ctx, pkglogger.AuditEvent{
			EventType:     "email_verification_failed",
			FailureReason: failureCode(err),
		})
		return nil, err
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, storeError("VERIFICATION_ERROR", err)
	}

	if user.EmailVerified {
		if err := s.tokens.DeleteByID(ctx, token.ID); err != nil {
			s.logger.Warn("failed to delete stale verification token", slog.String("token_id", token.ID), slog.Any("error", err))
		}
		return nil, errAlreadyVerified
	}

	user.EmailVerified = true
	user.VerificationToken = nil
	user.VerificationTokenExpires = nil
	if err := s.users.Save(ctx, user); err != nil {
		return nil, storeError("VERIFICATION_ERROR", err)
	}

	if err := s.tokens.DeleteByID(ctx, token.ID); err != nil {
		s.logger.Error("failed to delete consumed verification token", slog.String("token_id", token.ID), slog.Any("error", err))
		return nil, models.Internal("VERIFICATION_ERROR", "An unexpected error occurred", err)
	}

	s.logger.Info("email verified", slog.String("user_id", user.ID))
	s.auditLogger.LogTokenEvent(ctx, pkglogger.AuditEvent{
		EventType: "email_verified",
		UserID:    user.ID,
		Email:     user.Email,
		Success:   true,
	})
	return user, nil
}

// Resend issues a new token for email. Unknown and deleted accounts get the
// same silent success as a real send.
func (s *VerificationService) Resend(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("verification resend for unknown email")
			return nil
		}
		return storeError("VERIFICATION_ERROR", err)
	}
	if user.IsDeleted() {
		return nil
	}

	return s.Issue(ctx, user)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// failureCode returns the client tag of a classified error for audit records.
func failureCode(err error) string {
	if appErr, ok := models.AsError(err); ok {
		return appErr.Code
	}
	return "internal_error"
}
