package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenPayload is the caller-supplied part of a JWT.
type TokenPayload struct {
	UserID string `json:"_id"`
	Role   string `json:"role"`
}

type TokenClaims struct {
	UserID string `json:"_id"`
	Role   string `json:"role"`
	Type   string `json:"type"`
	// IssuedAtMs repeats iat in milliseconds; iat itself is whole seconds.
	IssuedAtMs int64 `json:"iat_ms,omitempty"`
	jwt.RegisteredClaims
}

// IssuedAtTime returns the most precise issue instant the token carries,
// or the zero time when it has none.
func (c *TokenClaims) IssuedAtTime() time.Time {
	if c.IssuedAtMs > 0 {
		return time.UnixMilli(c.IssuedAtMs)
	}
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

func (c *TokenClaims) Payload() TokenPayload {
	return TokenPayload{UserID: c.UserID, Role: c.Role}
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session is the result of every operation that issues a fresh token pair.
type Session struct {
	User   *User
	Tokens TokenPair
}
