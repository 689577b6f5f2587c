package auth

import (
	"net/http"
	"time"
)

const (
	AccessTokenCookie  = "token"
	RefreshTokenCookie = "refreshToken"

	// RefreshCookiePath limits the refresh cookie to the refresh endpoint.
	RefreshCookiePath = "/auth/refresh"
)

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain        string // Empty string = current host only
	Secure        bool   // HTTPS only
	SameSite      string // "strict", "lax", or "none"
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

// SetSessionCookies writes the access and refresh cookies. Without stay the
// refresh cookie is a browser-session cookie; the access cookie always
// carries the access token lifetime.
func SetSessionCookies(w http.ResponseWriter, accessToken, refreshToken string, stay bool, config CookieConfig) {
	http.SetCookie(w, newCookie(AccessTokenCookie, accessToken, "/", config.AccessMaxAge, config))

	refreshAge := time.Duration(0)
	if stay {
		refreshAge = config.RefreshMaxAge
	}
	http.SetCookie(w, newCookie(RefreshTokenCookie, refreshToken, RefreshCookiePath, refreshAge, config))
}

// ClearSessionCookies expires both session cookies
func ClearSessionCookies(w http.ResponseWriter, config CookieConfig) {
	for _, c := range []struct{ name, path string }{
		{AccessTokenCookie, "/"},
		{RefreshTokenCookie, RefreshCookiePath},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     c.name,
			Value:    "",
			Path:     c.path,
			Domain:   config.Domain,
			MaxAge:   -1, // Negative MaxAge deletes the cookie
			HttpOnly: true,
			Secure:   config.Secure,
			SameSite: parseSameSite(config.SameSite),
		})
	}
}

// GetCookieValue returns the named cookie's value or "".
func GetCookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func newCookie(name, value, path string, maxAge time.Duration, config CookieConfig) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   config.Domain,
		HttpOnly: true, // never readable from page scripts
		Secure:   config.Secure,
		SameSite: parseSameSite(config.SameSite),
	}
	if maxAge > 0 {
		cookie.MaxAge = int(maxAge.Seconds())
		cookie.Expires = time.Now().Add(maxAge)
	}
	return cookie
}

// parseSameSite converts string to http.SameSite constant
func parseSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
