package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/cache"
	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers map[string]*models.User

func (s stubUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

type middlewareFixture struct {
	tokens    *TokenManager
	blacklist *Blacklist
	users     stubUsers
	handler   http.Handler
	reached   *Principal
}

func newMiddlewareFixture(t *testing.T, guards ...func(http.Handler) http.Handler) *middlewareFixture {
	t.Helper()

	f := &middlewareFixture{
		tokens:    NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour),
		blacklist: NewBlacklist(cache.NewMemoryStore(), 0),
		users: stubUsers{
			"user-123": {ID: "user-123", Role: models.RoleUser, Enable: true, AccountStatus: models.AccountStatusActive},
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authn := NewAuthenticator(f.tokens, f.blacklist, f.users, RevocationConfig{FailClosed: true}, logger)

	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.reached = GetPrincipal(r)
		w.WriteHeader(http.StatusNoContent)
	})
	for i := len(guards) - 1; i >= 0; i-- {
		h = guards[i](h)
	}
	f.handler = authn.Middleware(h)
	return f
}

func (f *middlewareFixture) do(t *testing.T, mutate func(r *http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func bearer(token string) func(r *http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestMiddleware_NoToken_ContinuesAnonymously(t *testing.T) {
	f := newMiddlewareFixture(t)

	w := f.do(t, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, f.reached)
}

func TestMiddleware_BearerToken_AttachesUser(t *testing.T) {
	f := newMiddlewareFixture(t)
	token, err := f.tokens.SignAccess(testPayload)
	require.NoError(t, err)

	w := f.do(t, bearer(token))

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, f.reached)
	assert.Equal(t, "user-123", f.reached.User.ID)
	assert.Equal(t, token, f.reached.Token)
}

func TestMiddleware_CookieToken_AttachesUser(t *testing.T) {
	f := newMiddlewareFixture(t)
	token, err := f.tokens.SignAccess(testPayload)
	require.NoError(t, err)

	w := f.do(t, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, f.reached)
}

func TestMiddleware_RefreshTokenRejected(t *testing.T) {
	f := newMiddlewareFixture(t)
	token, err := f.tokens.SignRefresh(testPayload)
	require.NoError(t, err)

	w := f.do(t, bearer(token))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN_TYPE", decodeError(t, w).Message)
}

func TestMiddleware_InvalidToken(t *testing.T) {
	f := newMiddlewareFixture(t)

	w := f.do(t, bearer("garbage"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", decodeError(t, w).Message)
}

func TestMiddleware_BlacklistedToken(t *testing.T) {
	f := newMiddlewareFixture(t)
	token, err := f.tokens.SignAccess(testPayload)
	require.NoError(t, err)
	require.NoError(t, f.blacklist.Blacklist(context.Background(), token))

	w := f.do(t, bearer(token))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "TOKEN_REVOKED", resp.Message)
	assert.Equal(t, "Token has been revoked", resp.Error)
}

func TestMiddleware_UserWideRevocation(t *testing.T) {
	f := newMiddlewareFixture(t)
	f.tokens.SetClock(func() time.Time { return time.Now().Add(-time.Second) })
	token, err := f.tokens.SignAccess(testPayload)
	require.NoError(t, err)
	require.NoError(t, f.blacklist.BlacklistAllForUser(context.Background(), "user-123", 0))

	w := f.do(t, bearer(token))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_REVOKED", decodeError(t, w).Message)
}

func TestMiddleware_SessionAfterUserWideRevocation(t *testing.T) {
	f := newMiddlewareFixture(t)
	f.tokens.SetClock(func() time.Time { return time.Now().Add(time.Millisecond) })
	require.NoError(t, f.blacklist.BlacklistAllForUser(context.Background(), "user-123", 0))

	token, err := f.tokens.SignAccess(testPayload)
	require.NoError(t, err)
	w := f.do(t, bearer(token))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMiddleware_UnknownSubject(t *testing.T) {
	f := newMiddlewareFixture(t)
	token, err := f.tokens.SignAccess(models.TokenPayload{UserID: "ghost", Role: models.RoleUser})
	require.NoError(t, err)

	w := f.do(t, bearer(token))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIsLoggedIn(t *testing.T) {
	tests := []struct {
		name   string
		user   *models.User
		status int
		tag    string
	}{
		{"active", &models.User{Enable: true, AccountStatus: models.AccountStatusActive}, http.StatusNoContent, ""},
		{"locked", &models.User{Enable: false, AccountStatus: models.AccountStatusLocked}, http.StatusForbidden, "ACCOUNT_LOCKED"},
		{"deleted", &models.User{Enable: false, AccountStatus: models.AccountStatusDeleted}, http.StatusForbidden, "ACCOUNT_DELETED"},
		{"disabled", &models.User{Enable: false, AccountStatus: models.AccountStatusActive}, http.StatusUnauthorized, "USER_NOT_ENABLED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMiddlewareFixture(t, IsLoggedIn)
			tt.user.ID = "user-123"
			tt.user.Role = models.RoleUser
			f.users["user-123"] = tt.user

			token, err := f.tokens.SignAccess(testPayload)
			require.NoError(t, err)

			w := f.do(t, bearer(token))

			assert.Equal(t, tt.status, w.Code)
			if tt.tag != "" {
				assert.Equal(t, tt.tag, decodeError(t, w).Message)
			}
		})
	}
}

func TestIsLoggedIn_Anonymous(t *testing.T) {
	f := newMiddlewareFixture(t, IsLoggedIn)

	w := f.do(t, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "USER_NOT_LOGGED_IN", decodeError(t, w).Message)
}

func TestRequireRole(t *testing.T) {
	f := newMiddlewareFixture(t, IsLoggedIn, RequireRole(models.RoleAdmin))
	f.users["admin-1"] = &models.User{ID: "admin-1", Role: models.RoleAdmin, Enable: true, AccountStatus: models.AccountStatusActive}

	userToken, err := f.tokens.SignAccess(testPayload)
	require.NoError(t, err)
	w := f.do(t, bearer(userToken))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "INSUFFICIENT_ROLE", decodeError(t, w).Message)

	adminToken, err := f.tokens.SignAccess(models.TokenPayload{UserID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	w = f.do(t, bearer(adminToken))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireRole_UsesStoredRoleNotClaim(t *testing.T) {
	f := newMiddlewareFixture(t, IsLoggedIn, RequireRole(models.RoleAdmin))

	// A token claiming admin for a user whose stored role is "user".
	token, err := f.tokens.SignAccess(models.TokenPayload{UserID: "user-123", Role: models.RoleAdmin})
	require.NoError(t, err)

	w := f.do(t, bearer(token))

	assert.Equal(t, http.StatusForbidden, w.Code)
}
