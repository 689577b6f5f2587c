package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/background"
	"github.com/BradenHooton/warden/internal/config"
	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/middleware"
	"github.com/BradenHooton/warden/internal/routes"
	"github.com/BradenHooton/warden/internal/services"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := pkglogger.New(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("store", cfg.Store.Driver),
		slog.String("cache", cfg.Store.CacheDriver),
		slog.String("email", cfg.Email.Provider),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := openStores(startCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		st.close(ctx, logger)
	}()

	mailer, err := newMailer(startCtx, cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}

	// Token handling
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry, cfg.Auth.RefreshTokenExpiry)
	blacklist := auth.NewBlacklist(st.cache, cfg.Auth.UserRevocationTTL)
	blacklist.SetMaxEntryTTL(cfg.Auth.RefreshTokenExpiry)
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Services
	composer := services.NewEmailComposer(cfg.Server.FrontURL)
	notifier := services.NewNotifier(mailer, logger, 30*time.Second)

	verificationService := services.NewVerificationService(
		st.users, st.verificationTokens, mailer, composer, cfg.Auth.VerificationTokenTTL, logger, auditLogger)
	passwordResetService := services.NewPasswordResetService(
		st.users, st.resetTokens, blacklist, mailer, composer,
		services.PasswordResetOptions{TTL: cfg.Auth.PasswordResetTTL, HideLockedAccounts: cfg.Auth.HideLockedAccounts},
		logger, auditLogger)
	accountService := services.NewAccountService(st.users, blacklist, notifier, composer, logger, auditLogger)
	authService := services.NewAuthService(st.users, tokenManager, blacklist, verificationService,
		services.AuthOptions{
			RevokeRotatedRefresh: cfg.Auth.RevokeRotatedRefresh,
			HideLockedAccounts:   cfg.Auth.HideLockedAccounts,
		},
		logger, auditLogger)

	// Bootstrap first admin user if configured
	if cfg.Auth.AdminEmail != "" {
		if err := accountService.EnsureAdmin(startCtx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logger.Error("failed to ensure admin user", slog.Any("error", err))
		}
	} else {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
	}

	// Expired one-time token cleanup, plus the in-memory blacklist when Redis
	// is not there to expire keys on its own.
	purgers := map[string]background.ExpiredTokenPurger{
		"verification_tokens":   st.verificationTokens,
		"password_reset_tokens": st.resetTokens,
	}
	if st.memoryCache != nil {
		purgers["token_blacklist"] = st.memoryCache
	}
	cleanupManager := background.NewCleanupManager(cfg.Auth.CleanupSchedule, purgers, logger)
	if err := cleanupManager.Start(startCtx); err != nil {
		return err
	}

	// HTTP
	resolver, err := pkghttp.NewIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	cookies := auth.CookieConfig{
		Domain:        cfg.Server.CookieDomain,
		Secure:        cfg.Server.IsProduction(),
		SameSite:      "strict",
		AccessMaxAge:  cfg.Auth.AccessTokenExpiry,
		RefreshMaxAge: cfg.Auth.RefreshTokenExpiry,
	}
	errs := handlers.ErrorWriter{Logger: logger, Development: cfg.Server.Env == "development"}

	router := routes.NewRouter(routes.Dependencies{
		Auth:    handlers.NewAuthHandler(authService, verificationService, passwordResetService, cookies, errs),
		Account: handlers.NewAccountHandler(accountService, cookies, errs),
		Health:  handlers.NewHealthHandler(st.probes),
		Authenticator: auth.NewAuthenticator(tokenManager, blacklist, st.users,
			auth.RevocationConfig{FailClosed: true}, logger),
		Logger:         logger,
		ClientIP:       resolver.ClientIP,
		AuthLimit:      middleware.AuthRateLimit(cfg.Limits.AuthRequests, cfg.Limits.AuthWindow),
		RefreshLimit:   middleware.RefreshRateLimit(cfg.Limits.RefreshRequests, cfg.Limits.RefreshWindow),
		CORS:           middleware.DefaultCORSConfig(cfg.Server.FrontURL),
		Production:     cfg.Server.IsProduction(),
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Graceful shutdown
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-sigCtx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}
	if err := cleanupManager.Stop(shutdownCtx); err != nil {
		logger.Error("cleanup scheduler did not stop in time", slog.Any("error", err))
	}
	if err := notifier.Wait(shutdownCtx); err != nil {
		logger.Warn("pending notification emails abandoned", slog.Any("error", err))
	}

	logger.Info("server stopped gracefully")
	return nil
}

func newMailer(ctx context.Context, cfg config.EmailConfig, logger *slog.Logger) (services.Mailer, error) {
	switch cfg.Provider {
	case config.EmailProviderSES:
		return services.NewSESMailer(ctx, cfg.AWSRegion, cfg.From, logger)
	case config.EmailProviderResend:
		return services.NewResendMailer(cfg.ResendAPIKey, cfg.From, logger), nil
	default:
		logger.Warn("EMAIL_PROVIDER=log: emails are written to the log, not delivered")
		return services.NewLogMailer(logger), nil
	}
}
