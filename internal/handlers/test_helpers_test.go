package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/services"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithPrincipal attaches an authenticated caller to the request
func WithPrincipal(req *http.Request, user *models.User, token string) *http.Request {
	p := &auth.Principal{User: user, Claims: &models.TokenClaims{UserID: user.ID, Role: user.Role}, Token: token}
	return req.WithContext(context.WithValue(req.Context(), auth.PrincipalContextKey, p))
}

func NewTestErrorWriter() ErrorWriter {
	return ErrorWriter{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// AssertErrorResponse checks status, tag and detail of an error envelope
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedTag, expectedDetail string) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Failed to decode error response")
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, expectedStatus, resp.Code)
	assert.Equal(t, expectedTag, resp.Message, "Error tag mismatch")
	if expectedDetail != "" {
		assert.Equal(t, expectedDetail, resp.Error)
	}
}

// AssertSuccessResponse checks status and tag of a success envelope and
// decodes its data into target when given.
func AssertSuccessResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedTag string, target interface{}) string {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp struct {
		Status  string          `json:"status"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Failed to decode success response")
	assert.Equal(t, expectedTag, resp.Status)
	if target != nil {
		require.NoError(t, json.Unmarshal(resp.Data, target))
	}
	return resp.Message
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc     func(ctx context.Context, email, password string) (*models.Session, error)
	RegisterFunc  func(ctx context.Context, in services.RegisterInput) (*models.Session, error)
	AuthBackFunc  func(ctx context.Context, user *models.User) (*models.Session, error)
	RefreshFunc   func(ctx context.Context, refreshToken string) (*models.Session, error)
	LogoutFunc    func(ctx context.Context, accessToken, refreshToken string)
	LogoutAllFunc func(ctx context.Context, userID string) error
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, nil
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*models.Session, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, in)
	}
	return nil, nil
}

func (m *MockAuthService) AuthBack(ctx context.Context, user *models.User) (*models.Session, error) {
	if m.AuthBackFunc != nil {
		return m.AuthBackFunc(ctx, user)
	}
	return nil, nil
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return nil, nil
}

func (m *MockAuthService) Logout(ctx context.Context, accessToken, refreshToken string) {
	if m.LogoutFunc != nil {
		m.LogoutFunc(ctx, accessToken, refreshToken)
	}
}

func (m *MockAuthService) LogoutAll(ctx context.Context, userID string) error {
	if m.LogoutAllFunc != nil {
		return m.LogoutAllFunc(ctx, userID)
	}
	return nil
}

// MockVerificationService implements VerificationServiceInterface for testing
type MockVerificationService struct {
	ConsumeFunc func(ctx context.Context, rawToken string) (*models.User, error)
	ResendFunc  func(ctx context.Context, email string) error
}

func (m *MockVerificationService) Consume(ctx context.Context, rawToken string) (*models.User, error) {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, rawToken)
	}
	return nil, nil
}

func (m *MockVerificationService) Resend(ctx context.Context, email string) error {
	if m.ResendFunc != nil {
		return m.ResendFunc(ctx, email)
	}
	return nil
}

// MockPasswordResetService implements PasswordResetServiceInterface for testing
type MockPasswordResetService struct {
	RequestFunc     func(ctx context.Context, email string) error
	VerifyTokenFunc func(ctx context.Context, rawToken string) (string, error)
	ResetFunc       func(ctx context.Context, rawToken, newPassword string) (*models.User, error)
}

func (m *MockPasswordResetService) Request(ctx context.Context, email string) error {
	if m.RequestFunc != nil {
		return m.RequestFunc(ctx, email)
	}
	return nil
}

func (m *MockPasswordResetService) VerifyToken(ctx context.Context, rawToken string) (string, error) {
	if m.VerifyTokenFunc != nil {
		return m.VerifyTokenFunc(ctx, rawToken)
	}
	return "", nil
}

func (m *MockPasswordResetService) Reset(ctx context.Context, rawToken, newPassword string) (*models.User, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, rawToken, newPassword)
	}
	return nil, nil
}

// MockAccountService implements AccountServiceInterface for testing
type MockAccountService struct {
	LockFunc       func(ctx context.Context, userID, reason string) (*models.User, error)
	UnlockFunc     func(ctx context.Context, userID string) (*models.User, error)
	SoftDeleteFunc func(ctx context.Context, userID, accessToken, refreshToken string) error
	GetStatusFunc  func(ctx context.Context, userID string) (*models.AccountStatusView, error)
}

func (m *MockAccountService) Lock(ctx context.Context, userID, reason string) (*models.User, error) {
	if m.LockFunc != nil {
		return m.LockFunc(ctx, userID, reason)
	}
	return nil, nil
}

func (m *MockAccountService) Unlock(ctx context.Context, userID string) (*models.User, error) {
	if m.UnlockFunc != nil {
		return m.UnlockFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockAccountService) SoftDelete(ctx context.Context, userID, accessToken, refreshToken string) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, userID, accessToken, refreshToken)
	}
	return nil
}

func (m *MockAccountService) GetStatus(ctx context.Context, userID string) (*models.AccountStatusView, error) {
	if m.GetStatusFunc != nil {
		return m.GetStatusFunc(ctx, userID)
	}
	return nil, nil
}
