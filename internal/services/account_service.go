package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// Notifications queues best-effort emails.
type Notifications interface {
	Notify(msg Message)
}

// AccountService drives the account lifecycle: active, locked, deleted.
type AccountService struct {
	users         UserRepository
	blacklist     TokenBlacklist
	notifications Notifications
	composer      *EmailComposer
	logger        *slog.Logger
	auditLogger   *pkglogger.AuditLogger
	now           func() time.Time
}

func NewAccountService(
	users UserRepository,
	blacklist TokenBlacklist,
	notifications Notifications,
	composer *EmailComposer,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AccountService {
	return &AccountService{
		users:         users,
		blacklist:     blacklist,
		notifications: notifications,
		composer:      composer,
		logger:        logger,
		auditLogger:   auditLogger,
		now:           time.Now,
	}
}

func (s *AccountService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *AccountService) load(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, storeError("ACCOUNT_ERROR", err)
	}
	return user, nil
}

// Lock disables an active account and notifies its owner.
func (s *AccountService) Lock(ctx context.Context, userID, reason string) (*models.User, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch {
	case user.IsLocked():
		return nil, models.NewError(models.ErrAlreadyLocked, "ACCOUNT_ALREADY_LOCKED", "Account is already locked")
	case user.IsDeleted():
		return nil, models.NewError(models.ErrCannotLockDeleted, "ACCOUNT_DELETED", "Cannot lock a deleted account")
	}

	now := s.now().UTC()
	user.AccountStatus = models.AccountStatusLocked
	user.LockedAt = &now
	user.LockedReason = &reason
	user.Enable = false
	if err := s.users.Save(ctx, user); err != nil {
		return nil, storeError("ACCOUNT_LOCK_ERROR", err)
	}

	s.notifications.Notify(s.composer.AccountLocked(user.Email, reason))

	s.logger.Info("account locked", slog.String("user_id", user.ID))
	s.auditLogger.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType: "account_locked",
		UserID:    user.ID,
		Email:     user.Email,
		Success:   true,
		Metadata:  map[string]string{"reason": reason},
	})
	return user, nil
}

// Unlock returns a locked account to active.
func (s *AccountService) Unlock(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.IsLocked() {
		return nil, models.NewError(models.ErrNotLocked, "ACCOUNT_NOT_LOCKED", "Account is not locked")
	}

	user.AccountStatus = models.AccountStatusActive
	user.LockedAt = nil
	user.LockedReason = nil
	user.Enable = true
	if err := s.users.Save(ctx, user); err != nil {
		return nil, storeError("ACCOUNT_UNLOCK_ERROR", err)
	}

	s.logger.Info("account unlocked", slog.String("user_id", user.ID))
	s.auditLogger.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType: "account_unlocked",
		UserID:    user.ID,
		Email:     user.Email,
		Success:   true,
	})
	return user, nil
}

// SoftDelete marks the account deleted and revokes the tokens the caller
// presented. The state write and the revocation are separate store calls.
func (s *AccountService) SoftDelete(ctx context.Context, userID, accessToken, refreshToken string) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	if user.IsDeleted() {
		return models.NewError(models.ErrAlreadyDeleted, "ACCOUNT_ALREADY_DELETED", "Account is already deleted")
	}

	now := s.now().UTC()
	user.AccountStatus = models.AccountStatusDeleted
	user.DeletedAt = &now
	user.Enable = false
	if err := s.users.Save(ctx, user); err != nil {
		return storeError("ACCOUNT_DELETE_ERROR", err)
	}

	for _, token := range []string{accessToken, refreshToken} {
		if token == "" {
			continue
		}
		if err := s.blacklist.Blacklist(ctx, token); err != nil {
			s.logger.Error("failed to revoke token of deleted account", slog.String("user_id", user.ID), slog.Any("error", err))
		}
	}

	s.notifications.Notify(s.composer.AccountDeleted(user.Email))

	s.logger.Info("account deleted", slog.String("user_id", user.ID))
	s.auditLogger.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType: "account_deleted",
		UserID:    user.ID,
		Email:     user.Email,
		Success:   true,
	})
	return nil
}

func (s *AccountService) GetStatus(ctx context.Context, userID string) (*models.AccountStatusView, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := user.StatusView()
	return &view, nil
}

// EnsureAdmin creates the bootstrap administrator, or promotes an existing
// account with that email.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if user.Role == models.RoleAdmin {
			return nil
		}
		user.Role = models.RoleAdmin
		if err := s.users.Save(ctx, user); err != nil {
			return storeError("ADMIN_BOOTSTRAP_ERROR", err)
		}
		s.logger.Info("existing user promoted to admin", slog.String("user_id", user.ID))
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return storeError("ADMIN_BOOTSTRAP_ERROR", err)
	}

	admin := &models.User{
		Email:         email,
		Password:      password,
		FirstName:     "Admin",
		LastName:      "User",
		Role:          models.RoleAdmin,
		Enable:        true,
		EmailVerified: true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return storeError("ADMIN_BOOTSTRAP_ERROR", err)
	}

	s.logger.Info("admin user created", slog.String("user_id", admin.ID))
	s.auditLogger.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType: "admin_bootstrapped",
		UserID:    admin.ID,
		Email:     admin.Email,
		Success:   true,
	})
	return nil
}
