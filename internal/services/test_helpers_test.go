package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/cache"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/repositories"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

const testSecret = "test-secret-key-with-enough-length"

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc func(ctx context.Context, email string) (*models.User, error)
	CreateFunc     func(ctx context.Context, user *models.User) error
	SaveFunc       func(ctx context.Context, user *models.User) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return models.ErrInternalServer
}

func (m *MockUserRepository) Save(ctx context.Context, user *models.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, user)
	}
	return nil
}

// MockBlacklist implements TokenBlacklist for testing
type MockBlacklist struct {
	BlacklistFunc           func(ctx context.Context, token string) error
	BlacklistAllForUserFunc func(ctx context.Context, userID string, ttl time.Duration) error
	CheckRevokedFunc        func(ctx context.Context, token string, claims *models.TokenClaims) error
}

func (m *MockBlacklist) Blacklist(ctx context.Context, token string) error {
	if m.BlacklistFunc != nil {
		return m.BlacklistFunc(ctx, token)
	}
	return nil
}

func (m *MockBlacklist) BlacklistAllForUser(ctx context.Context, userID string, ttl time.Duration) error {
	if m.BlacklistAllForUserFunc != nil {
		return m.BlacklistAllForUserFunc(ctx, userID, ttl)
	}
	return nil
}

func (m *MockBlacklist) CheckRevoked(ctx context.Context, token string, claims *models.TokenClaims) error {
	if m.CheckRevokedFunc != nil {
		return m.CheckRevokedFunc(ctx, token, claims)
	}
	return nil
}

// MockMailer records every message and optionally fails.
type MockMailer struct {
	mu       sync.Mutex
	Sent     []Message
	SendFunc func(ctx context.Context, msg Message) error
}

func (m *MockMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, msg)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return nil
}

func (m *MockMailer) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.Sent...)
}

// syncNotifications delivers immediately so tests can inspect the mailer.
type syncNotifications struct {
	mailer Mailer
}

func (n syncNotifications) Notify(msg Message) {
	_ = n.mailer.Send(context.Background(), msg)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// fixture wires every service onto in-memory stores sharing one clock.
type fixture struct {
	now time.Time

	users       *repositories.MemoryUserRepository
	verifyRepo  *repositories.MemoryTokenRepository
	resetRepo   *repositories.MemoryTokenRepository
	store       *cache.MemoryStore
	tm          *auth.TokenManager
	blacklist   *auth.Blacklist
	mailer      *MockMailer
	composer    *EmailComposer
	auth        *AuthService
	verify      *VerificationService
	reset       *PasswordResetService
	accounts    *AccountService
	auditLogger *pkglogger.AuditLogger
}

func newFixture(t *testing.T, opts AuthOptions) *fixture {
	t.Helper()

	f := &fixture{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }

	logger := testLogger()
	f.auditLogger = pkglogger.NewAuditLogger(logger)

	f.users = repositories.NewMemoryUserRepository()
	f.users.SetClock(clock)
	f.verifyRepo = repositories.NewMemoryTokenRepository()
	f.resetRepo = repositories.NewMemoryTokenRepository()

	f.store = cache.NewMemoryStore()
	f.store.SetClock(clock)

	f.tm = auth.NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	f.tm.SetClock(clock)
	f.blacklist = auth.NewBlacklist(f.store, 0)
	f.blacklist.SetClock(clock)

	f.mailer = &MockMailer{}
	f.composer = NewEmailComposer("http://front.test")

	f.verify = NewVerificationService(f.users, f.verifyRepo, f.mailer, f.composer, 24*time.Hour, logger, f.auditLogger)
	f.verify.SetClock(clock)

	f.reset = NewPasswordResetService(f.users, f.resetRepo, f.blacklist, f.mailer, f.composer,
		PasswordResetOptions{TTL: time.Hour, HideLockedAccounts: opts.HideLockedAccounts}, logger, f.auditLogger)
	f.reset.SetClock(clock)

	f.accounts = NewAccountService(f.users, f.blacklist, syncNotifications{mailer: f.mailer}, f.composer, logger, f.auditLogger)
	f.accounts.SetClock(clock)

	f.auth = NewAuthService(f.users, f.tm, f.blacklist, f.verify, opts, logger, f.auditLogger)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// register creates an account through the service and returns its session.
func (f *fixture) register(t *testing.T, email string) *models.Session {
	t.Helper()
	session, err := f.auth.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  "Str0ng!Pass",
		FirstName: "Alice",
		LastName:  "Liddell",
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return session
}

// lastToken extracts the token query parameter from the newest email.
func (f *fixture) lastToken(t *testing.T) string {
	t.Helper()
	msgs := f.mailer.Messages()
	if len(msgs) == 0 {
		t.Fatal("no email sent")
	}
	return tokenFromText(msgs[len(msgs)-1].Text)
}

func tokenFromText(text string) string {
	_, rest, ok := strings.Cut(text, "?token=")
	if !ok {
		return ""
	}
	if end := strings.IndexAny(rest, " \n"); end >= 0 {
		return rest[:end]
	}
	return rest
}
