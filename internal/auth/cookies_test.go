package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCookieConfig = CookieConfig{
	Secure:        true,
	SameSite:      "lax",
	AccessMaxAge:  15 * time.Minute,
	RefreshMaxAge: 7 * 24 * time.Hour,
}

func cookiesByName(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestSetSessionCookies_Stay(t *testing.T) {
	w := httptest.NewRecorder()

	SetSessionCookies(w, "access", "refresh", true, testCookieConfig)

	cookies := cookiesByName(w)
	require.Contains(t, cookies, AccessTokenCookie)
	require.Contains(t, cookies, RefreshTokenCookie)

	access := cookies[AccessTokenCookie]
	assert.Equal(t, "access", access.Value)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, 900, access.MaxAge)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)

	refresh := cookies[RefreshTokenCookie]
	assert.Equal(t, "refresh", refresh.Value)
	assert.Equal(t, RefreshCookiePath, refresh.Path)
	assert.Equal(t, 7*24*3600, refresh.MaxAge)
	assert.True(t, refresh.HttpOnly)
}

func TestSetSessionCookies_NoStay(t *testing.T) {
	w := httptest.NewRecorder()

	SetSessionCookies(w, "access", "refresh", false, testCookieConfig)

	cookies := cookiesByName(w)
	assert.Equal(t, 900, cookies[AccessTokenCookie].MaxAge)
	assert.Equal(t, 0, cookies[RefreshTokenCookie].MaxAge, "refresh cookie should last for the browser session")
}

func TestClearSessionCookies(t *testing.T) {
	w := httptest.NewRecorder()

	ClearSessionCookies(w, testCookieConfig)

	cookies := cookiesByName(w)
	assert.Equal(t, -1, cookies[AccessTokenCookie].MaxAge)
	assert.Equal(t, -1, cookies[RefreshTokenCookie].MaxAge)
	assert.Equal(t, RefreshCookiePath, cookies[RefreshTokenCookie].Path)
}

func TestGetCookieValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "abc"})

	assert.Equal(t, "abc", GetCookieValue(req, AccessTokenCookie))
	assert.Equal(t, "", GetCookieValue(req, RefreshTokenCookie))
}

func TestParseSameSite(t *testing.T) {
	assert.Equal(t, http.SameSiteStrictMode, parseSameSite("strict"))
	assert.Equal(t, http.SameSiteNoneMode, parseSameSite("none"))
	assert.Equal(t, http.SameSiteLaxMode, parseSameSite(""))
}
