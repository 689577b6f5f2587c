package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// Verifier issues email verification tokens.
type Verifier interface {
	Issue(ctx context.Context, user *models.User) error
}

// AuthOptions switches between reference and hardened behaviour.
type AuthOptions struct {
	// RevokeRotatedRefresh blacklists a refresh token once it is exchanged.
	RevokeRotatedRefresh bool
	// HideLockedAccounts makes login answer locked accounts like unknown ones.
	HideLockedAccounts bool
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthService handles authentication business logic
type AuthService struct {
	users       UserRepository
	tm          *auth.TokenManager
	blacklist   TokenBlacklist
	verifier    Verifier
	opts        AuthOptions
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users UserRepository,
	tm *auth.TokenManager,
	blacklist TokenBlacklist,
	verifier Verifier,
	opts AuthOptions,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		users:       users,
		tm:          tm,
		blacklist:   blacklist,
		verifier:    verifier,
		opts:        opts,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnPasswordCheck spends the same bcrypt work as a real comparison so a
// missing account cannot be told apart by response time.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = pkgauth.HashPassword("timing-equalizer-Pa55!")
	})
	_ = pkgauth.ComparePassword(dummyHash, password)
}

// Login authenticates a user by email and password
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			burnPasswordCheck(password)
			s.logger.Info("login failed: invalid credentials")
			s.auditLogin(ctx, "", email, "invalid_credentials")
			return nil, errLoginFailed
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, storeError("LOGIN_ERROR_GENERIC", err)
	}

	switch {
	case user.IsDeleted():
		burnPasswordCheck(password)
		s.logger.Info("login failed: account deleted", slog.String("user_id", user.ID))
		s.auditLogin(ctx, user.ID, email, "account_deleted")
		return nil, errLoginFailed
	case user.IsLocked():
		s.logger.Info("login blocked: account locked", slog.String("user_id", user.ID))
		s.auditLogin(ctx, user.ID, email, "account_locked")
		if s.opts.HideLockedAccounts {
			burnPasswordCheck(password)
			return nil, errLoginFailed
		}
		return nil, errAccountLocked
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Info("login failed: invalid credentials", slog.String("user_id", user.ID))
		s.auditLogin(ctx, user.ID, email, "invalid_credentials")
		return nil, errLoginFailed
	}

	if !user.Enable {
		s.auditLogin(ctx, user.ID, email, "account_disabled")
		return nil, models.NewError(models.ErrAccountDisabled, "USER_NOT_ENABLED", "This account is disabled")
	}

	session, err := s.newSession(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		Email:     email,
		Success:   true,
	})
	return session, nil
}

func (s *AuthService) auditLogin(ctx context.Context, userID, email, reason string) {
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     "login_failed",
		UserID:        userID,
		Email:         email,
		FailureReason: reason,
	})
}

// Register creates a new user account and signs it in. The verification
// email is best effort.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.Session, error) {
	email := normalizeEmail(in.Email)

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: user already exists")
		return nil, models.NewError(models.ErrEmailExists, "REGISTER_ERROR_EMAIL_EXIST",
			fmt.Sprintf("Failed to register email already exist %s.", email))
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, storeError("REGISTER_ERROR_GENERIC", err)
	}

	user := &models.User{
		Email:     email,
		Password:  in.Password,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      models.RoleUser,
		Enable:    true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.logger.Info("failed to create user", slog.Any("error", err))
		return nil, storeError("REGISTER_ERROR_GENERIC", err)
	}

	if err := s.verifier.Issue(ctx, user); err != nil {
		s.logger.Error("failed to send verification email during registration",
			slog.String("user_id", user.ID), slog.Any("error", err))
	}

	session, err := s.newSession(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	s.auditLogger.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType: "user_registered",
		UserID:    user.ID,
		Email:     email,
		Success:   true,
	})
	return session, nil
}

// AuthBack re-validates the caller's session and rotates its tokens.
func (s *AuthService) AuthBack(ctx context.Context, user *models.User) (*models.Session, error) {
	if user == nil {
		return nil, models.NewError(models.ErrUnauthorized, "USER_NOT_LOGGED_IN", "You aren't logged in to do this action.")
	}
	switch {
	case user.IsLocked():
		return nil, errAccountLocked
	case user.IsDeleted():
		return nil, errAccountDeleted
	}

	session, err := s.newSession(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("session re-validated", slog.String("user_id", user.ID))
	return session, nil
}

// Refresh exchanges a refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, models.NewError(models.ErrTokenInvalid, "REFRESH_TOKEN_ERROR", "No refresh token provided")
	}

	claims, err := s.tm.VerifyRefresh(refreshToken)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, refreshTokenError(err)
	}

	if err := s.blacklist.CheckRevoked(ctx, refreshToken, claims); err != nil {
		if errors.Is(err, models.ErrTokenRevoked) {
			s.auditRefresh(ctx, claims.UserID, "token_revoked")
			return nil, refreshTokenError(err)
		}
		s.logger.Error("refresh revocation check failed", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.Internal("REVOCATION_CHECK_FAILED", "Unable to verify token status", err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditRefresh(ctx, claims.UserID, "user_not_found")
			return nil, errUserDisabled
		}
		return nil, storeError("REFRESH_TOKEN_ERROR", err)
	}

	switch {
	case user.IsLocked():
		s.auditRefresh(ctx, user.ID, "account_locked")
		return nil, errAccountLocked
	case user.IsDeleted():
		s.auditRefresh(ctx, user.ID, "account_deleted")
		return nil, errAccountDeleted
	case !user.Enable:
		s.auditRefresh(ctx, user.ID, "account_disabled")
		return nil, errUserDisabled
	}

	session, err := s.newSession(user)
	if err != nil {
		return nil, err
	}

	if s.opts.RevokeRotatedRefresh {
		if err := s.blacklist.Blacklist(ctx, refreshToken); err != nil {
			s.logger.Error("failed to revoke rotated refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		}
	}

	s.logger.Info("token refreshed", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "token_refreshed",
		UserID:    user.ID,
		Success:   true,
	})
	return session, nil
}

func (s *AuthService) auditRefresh(ctx context.Context, userID, reason string) {
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     "token_refresh_failed",
		UserID:        userID,
		FailureReason: reason,
	})
}

func refreshTokenError(err error) *models.Error {
	switch {
	case errors.Is(err, models.ErrTokenExpired):
		return models.NewError(models.ErrTokenExpired, "REFRESH_TOKEN_ERROR", "Refresh token has expired")
	case errors.Is(err, models.ErrWrongTokenType):
		return models.NewError(models.ErrWrongTokenType, "REFRESH_TOKEN_ERROR", "Invalid token type")
	case errors.Is(err, models.ErrTokenRevoked):
		return models.NewError(models.ErrTokenRevoked, "REFRESH_TOKEN_ERROR", "Token has been revoked")
	default:
		return models.NewError(models.ErrTokenInvalid, "REFRESH_TOKEN_ERROR", "Invalid refresh token")
	}
}

// Logout blacklists whichever tokens were presented. It never fails: tokens
// this service did not sign have nothing to protect and are not stored.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) {
	var userID string
	for _, token := range []string{accessToken, refreshToken} {
		if token == "" {
			continue
		}
		claims, err := s.tm.VerifySignature(token)
		if err != nil {
			s.logger.Debug("ignoring unsigned token on logout")
			continue
		}
		if userID == "" {
			userID = claims.UserID
		}
		if err := s.blacklist.Blacklist(ctx, token); err != nil {
			if errors.Is(err, models.ErrTokenInvalid) {
				continue
			}
			s.logger.Error("failed to blacklist token on logout", slog.Any("error", err))
		}
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "logout",
		UserID:    userID,
		Success:   true,
	})
}

// LogoutAll revokes every token issued to the user so far.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.blacklist.BlacklistAllForUser(ctx, userID, 0); err != nil {
		s.logger.Error("failed to revoke all user tokens", slog.String("user_id", userID), slog.Any("error", err))
		return models.Internal("LOGOUT_ERROR", "Error during logout", err)
	}

	s.logger.Info("user logged out from all devices", slog.String("user_id", userID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "logout_all",
		UserID:    userID,
		Success:   true,
	})
	return nil
}

func (s *AuthService) newSession(user *models.User) (*models.Session, error) {
	tokens, err := s.tm.GeneratePair(models.TokenPayload{UserID: user.ID, Role: user.Role})
	if err != nil {
		s.logger.Error("failed to generate tokens", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.Internal("TOKEN_GENERATION_ERROR", "An unexpected error occurred", err)
	}
	return &models.Session{User: user, Tokens: tokens}, nil
}
