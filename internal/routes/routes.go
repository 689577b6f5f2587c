package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/middleware"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Dependencies carries everything the router wires together.
type Dependencies struct {
	Auth          *handlers.AuthHandler
	Account       *handlers.AccountHandler
	Health        *handlers.HealthHandler
	Authenticator *auth.Authenticator
	Logger        *slog.Logger

	// ClientIP resolves the caller address for rate limiting and logs.
	ClientIP func(*http.Request) string

	AuthLimit      middleware.RateLimitConfig
	RefreshLimit   middleware.RateLimitConfig
	CORS           middleware.CORSConfig
	Production     bool
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP handler with the global middleware chain.
func NewRouter(d Dependencies) chi.Router {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Production: d.Production}))
	router.Use(middleware.CORS(d.CORS))
	router.Use(middleware.SecureLogger(d.Logger, d.ClientIP))
	router.Use(chimiddleware.Recoverer)
	if d.RequestTimeout > 0 {
		router.Use(chimiddleware.Timeout(d.RequestTimeout))
	}

	RegisterRoutes(router, d)
	return router
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, d Dependencies) {
	// One limiter instance per budget: every route it wraps draws from the
	// same per-IP counter.
	authLimiter := middleware.RateLimitByIP(d.AuthLimit, d.ClientIP)
	refreshLimiter := middleware.RateLimitByIP(d.RefreshLimit, d.ClientIP)

	router.Get("/health", d.Health.Health)
	router.Get("/health/ready", d.Health.Ready)
	router.Get("/health/live", d.Health.Live)

	// Public routes - no authentication required
	router.Group(func(r chi.Router) {
		r.Use(authLimiter)
		r.Post("/auth/login", d.Auth.Login)
		r.Post("/auth/register", d.Auth.Register)
		r.Post("/auth/logout", d.Auth.Logout)
		r.Post("/auth/verify-email", d.Auth.VerifyEmail)
		r.Post("/auth/resend-verification", d.Auth.ResendVerification)
		r.Post("/auth/forgot-password", d.Auth.ForgotPassword)
		r.Post("/auth/verify-reset-token", d.Auth.VerifyResetToken)
		r.Post("/auth/reset-password", d.Auth.ResetPassword)
	})
	router.With(refreshLimiter).Post("/auth/refresh", d.Auth.Refresh)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(d.Authenticator.Middleware)
		r.Use(auth.IsLoggedIn)

		r.Get("/auth", d.Auth.AuthBack)
		r.Post("/auth/logout-all", d.Auth.LogoutAll)
		r.Delete("/auth/account", d.Account.DeleteAccount)
		r.Get("/auth/account/status", d.Account.AccountStatus)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))
			r.Post("/auth/admin/lock-account", d.Account.LockAccount)
			r.Post("/auth/admin/unlock-account", d.Account.UnlockAccount)
		})
	})
}
