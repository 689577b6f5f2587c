package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/cache"
	"github.com/BradenHooton/warden/internal/config"
	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/middleware"
	"github.com/BradenHooton/warden/internal/routes"
	"github.com/BradenHooton/warden/internal/services"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// CapturingMailer records sent messages for test assertions
type CapturingMailer struct {
	mu   sync.Mutex
	Sent []services.Message
}

func (m *CapturingMailer) Send(ctx context.Context, msg services.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, msg)
	return nil
}

// GetLastEmail returns the most recent email sent
func (m *CapturingMailer) GetLastEmail() *services.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Sent) == 0 {
		return nil
	}
	msg := m.Sent[len(m.Sent)-1]
	return &msg
}

// TestServer wraps httptest.Server with the Postgres stores, an in-memory
// blacklist and a capturing mailer.
type TestServer struct {
	Server   *httptest.Server
	DB       *database.DB
	Mailer   *CapturingMailer
	Config   *config.Config
	Accounts *services.AccountService

	notifier *services.Notifier
}

// NewTestServer initializes a complete HTTP server with real database + captured email
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Server: config.ServerConfig{Env: "test", FrontURL: "http://localhost:3000"},
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret-32-characters-long-for-testing",
			AccessTokenExpiry:    15 * time.Minute,
			RefreshTokenExpiry:   7 * 24 * time.Hour,
			VerificationTokenTTL: 24 * time.Hour,
			PasswordResetTTL:     time.Hour,
			RevokeRotatedRefresh: true,
		},
	}

	repos := InitializeRepositories(db)
	store := cache.NewMemoryStore()
	mailer := &CapturingMailer{}
	audit := pkglogger.NewAuditLogger(logger)

	tm := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry, cfg.Auth.RefreshTokenExpiry)
	blacklist := auth.NewBlacklist(store, 0)
	composer := services.NewEmailComposer(cfg.Server.FrontURL)
	notifier := services.NewNotifier(mailer, logger, 5*time.Second)

	verification := services.NewVerificationService(repos.Users, repos.VerificationTokens, mailer, composer,
		cfg.Auth.VerificationTokenTTL, logger, audit)
	reset := services.NewPasswordResetService(repos.Users, repos.ResetTokens, blacklist, mailer, composer,
		services.PasswordResetOptions{TTL: cfg.Auth.PasswordResetTTL}, logger, audit)
	accounts := services.NewAccountService(repos.Users, blacklist, notifier, composer, logger, audit)
	authService := services.NewAuthService(repos.Users, tm, blacklist, verification,
		services.AuthOptions{RevokeRotatedRefresh: cfg.Auth.RevokeRotatedRefresh}, logger, audit)

	resolver, _ := pkghttp.NewIPResolver(nil)
	errs := handlers.ErrorWriter{Logger: logger}
	cookies := auth.CookieConfig{AccessMaxAge: cfg.Auth.AccessTokenExpiry, RefreshMaxAge: cfg.Auth.RefreshTokenExpiry}

	router := routes.NewRouter(routes.Dependencies{
		Auth:          handlers.NewAuthHandler(authService, verification, reset, cookies, errs),
		Account:       handlers.NewAccountHandler(accounts, cookies, errs),
		Health:        handlers.NewHealthHandler(map[string]handlers.Probe{"postgres": db.HealthCheck}),
		Authenticator: auth.NewAuthenticator(tm, blacklist, repos.Users, auth.RevocationConfig{FailClosed: true}, logger),
		Logger:        logger,
		ClientIP:      resolver.ClientIP,
		AuthLimit:     middleware.AuthRateLimit(1000, time.Minute),
		RefreshLimit:  middleware.RefreshRateLimit(1000, time.Minute),
		CORS:          middleware.DefaultCORSConfig(cfg.Server.FrontURL),
	})

	return &TestServer{
		Server:   httptest.NewServer(router),
		DB:       db,
		Mailer:   mailer,
		Config:   cfg,
		Accounts: accounts,
		notifier: notifier,
	}
}

// Close shuts down the test server after pending notifications are sent
func (ts *TestServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = ts.notifier.Wait(ctx)
	ts.Server.Close()
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return ts.Server.Client().Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with a bearer token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	return ts.Request(method, path, body, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
}

// ParseJSONResponse decodes and closes the response body
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// SessionEnvelope is the success envelope of login, register, refresh and auth-back.
type SessionEnvelope struct {
	Status string `json:"status"`
	Data   struct {
		ID            string `json:"_id"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"emailVerified"`
		AccountStatus string `json:"accountStatus"`
		AccessToken   string `json:"accessToken"`
		RefreshToken  string `json:"refreshToken"`
	} `json:"data"`
	Message string `json:"message"`
}

// ExtractTokensFromResponse decodes a session envelope and returns its tokens
func ExtractTokensFromResponse(resp *http.Response) (accessToken, refreshToken string, err error) {
	var env SessionEnvelope
	if err := ParseJSONResponse(resp, &env); err != nil {
		return "", "", fmt.Errorf("failed to parse session response: %w", err)
	}
	return env.Data.AccessToken, env.Data.RefreshToken, nil
}

// GetErrorMessage decodes an error envelope
func GetErrorMessage(resp *http.Response) (pkghttp.ErrorResponse, error) {
	var errResp pkghttp.ErrorResponse
	err := ParseJSONResponse(resp, &errResp)
	return errResp, err
}
