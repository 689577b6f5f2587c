package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds one limiter's budget
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Message  string
}

// AuthRateLimit guards the anonymous credential endpoints.
func AuthRateLimit(requests int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Requests: requests,
		Window:   window,
		Message:  "Too many authentication attempts from this IP, please try again later.",
	}
}

func RefreshRateLimit(requests int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Requests: requests,
		Window:   window,
		Message:  "Too many token refresh attempts, please try again later.",
	}
}

// RateLimitByIP counts requests per client IP. Every route wrapped by the
// returned middleware shares one budget.
func RateLimitByIP(config RateLimitConfig, clientIP func(*http.Request) string) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return clientIP(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, config.Message)
		}),
	)
}
