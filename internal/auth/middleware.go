package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// PrincipalContextKey is the key for storing the authenticated principal
	PrincipalContextKey contextKey = "principal"
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	User   *models.User
	Claims *models.TokenClaims
	Token  string
}

// UserRepository is the subset of the credential store the middleware needs.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// TokenRevocationChecker reports whether a verified token has been revoked.
type TokenRevocationChecker interface {
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	IsRevokedForUser(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

// RevocationConfig holds configuration for token revocation behavior
type RevocationConfig struct {
	FailClosed bool // If true, deny access if revocation check fails; if false, allow access (fail open)
}

// Authenticator resolves the caller from a bearer header or the access cookie.
type Authenticator struct {
	tokens     *TokenManager
	revocation TokenRevocationChecker
	users      UserRepository
	config     RevocationConfig
	logger     *slog.Logger
}

func NewAuthenticator(tokens *TokenManager, revocation TokenRevocationChecker, users UserRepository, config RevocationConfig, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		tokens:     tokens,
		revocation: revocation,
		users:      users,
		config:     config,
		logger:     logger,
	}
}

// ExtractToken returns the access token from the Authorization header,
// falling back to the access token cookie.
func ExtractToken(r *http.Request) string {
	if token := pkghttp.BearerToken(r); token != "" {
		return token
	}
	return GetCookieValue(r, AccessTokenCookie)
}

// Middleware attaches a Principal to the request context when a token is
// present. Requests without a token continue anonymously; requests with a
// bad token are rejected.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ExtractToken(r)
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()

		revoked, err := a.revocation.IsBlacklisted(ctx, tokenString)
		if err != nil && !a.failOpen(err) {
			pkghttp.WriteError(w, http.StatusServiceUnavailable, "REVOCATION_CHECK_FAILED", "Unable to verify token status")
			return
		}
		if revoked {
			pkghttp.WriteUnauthorized(w, "TOKEN_REVOKED", "Token has been revoked")
			return
		}

		claims, err := a.tokens.VerifyAccess(tokenString)
		if err != nil {
			writeTokenError(w, err)
			return
		}

		revoked, err = a.revocation.IsRevokedForUser(ctx, claims.UserID, claims.IssuedAtTime())
		if err != nil && !a.failOpen(err) {
			pkghttp.WriteError(w, http.StatusServiceUnavailable, "REVOCATION_CHECK_FAILED", "Unable to verify token status")
			return
		}
		if revoked {
			pkghttp.WriteUnauthorized(w, "TOKEN_REVOKED", "Token has been revoked")
			return
		}

		user, err := a.users.GetByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				pkghttp.WriteUnauthorized(w, "ERROR_WHILE_CHECKING_CREDENTIALS", "Unable to verify credentials")
				return
			}
			a.logger.Error("failed to resolve token subject", slog.String("user_id", claims.UserID), slog.Any("error", err))
			pkghttp.WriteInternalError(w, "ERROR_WHILE_CHECKING_CREDENTIALS")
			return
		}

		principal := &Principal{User: user, Claims: claims, Token: tokenString}
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, PrincipalContextKey, principal)))
	})
}

func (a *Authenticator) failOpen(err error) bool {
	a.logger.Error("token revocation check failed", slog.Any("error", err))
	return !a.config.FailClosed
}

func writeTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrTokenExpired):
		pkghttp.WriteUnauthorized(w, "TOKEN_EXPIRED", "Token has expired")
	case errors.Is(err, models.ErrWrongTokenType):
		pkghttp.WriteUnauthorized(w, "INVALID_TOKEN_TYPE", "Access token required")
	default:
		pkghttp.WriteUnauthorized(w, "INVALID_TOKEN", "Invalid token")
	}
}

// IsLoggedIn requires an authenticated, active and enabled user
func IsLoggedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r)
		if user == nil {
			pkghttp.WriteUnauthorized(w, "USER_NOT_LOGGED_IN", "You aren't logged in to do this action.")
			return
		}

		switch {
		case user.IsLocked():
			pkghttp.WriteForbidden(w, "ACCOUNT_LOCKED", "This account has been locked. Please contact support.")
			return
		case user.IsDeleted():
			pkghttp.WriteForbidden(w, "ACCOUNT_DELETED", "This account has been deleted")
			return
		case !user.Enable:
			pkghttp.WriteUnauthorized(w, "USER_NOT_ENABLED", "This account is disabled")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRole creates a middleware that enforces role-based access control.
// It must run after IsLoggedIn.
func RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r)
			if user == nil {
				pkghttp.WriteUnauthorized(w, "USER_NOT_LOGGED_IN", "You aren't logged in to do this action.")
				return
			}

			if user.Role != role {
				pkghttp.WriteForbidden(w, "INSUFFICIENT_ROLE", "You do not have permission to perform this action")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the request context
func GetPrincipal(r *http.Request) *Principal {
	p, ok := r.Context().Value(PrincipalContextKey).(*Principal)
	if !ok {
		return nil
	}
	return p
}

// GetUserFromContext returns the authenticated user or nil
func GetUserFromContext(r *http.Request) *models.User {
	if p := GetPrincipal(r); p != nil {
		return p.User
	}
	return nil
}
