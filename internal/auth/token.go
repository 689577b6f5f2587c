package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager handles JWT token generation and validation
type TokenManager struct {
	secret             []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	now                func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:             []byte(secret),
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
		now:                time.Now,
	}
}

// SetClock replaces the time source used for iat/exp and for verification.
func (tm *TokenManager) SetClock(now func() time.Time) {
	tm.now = now
}

func (tm *TokenManager) AccessTokenExpiry() time.Duration  { return tm.accessTokenExpiry }
func (tm *TokenManager) RefreshTokenExpiry() time.Duration { return tm.refreshTokenExpiry }

// SignAccess creates a short-lived access token
func (tm *TokenManager) SignAccess(p models.TokenPayload) (string, error) {
	return tm.sign(p, models.TokenTypeAccess, tm.accessTokenExpiry)
}

// SignRefresh creates a long-lived refresh token
func (tm *TokenManager) SignRefresh(p models.TokenPayload) (string, error) {
	return tm.sign(p, models.TokenTypeRefresh, tm.refreshTokenExpiry)
}

// GeneratePair issues an access and a refresh token for the same payload.
func (tm *TokenManager) GeneratePair(p models.TokenPayload) (models.TokenPair, error) {
	access, err := tm.SignAccess(p)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, err := tm.SignRefresh(p)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (tm *TokenManager) sign(p models.TokenPayload, tokenType string, ttl time.Duration) (string, error) {
	now := tm.now()
	claims := &models.TokenClaims{
		UserID: p.UserID,
		Role:   p.Role,
		Type:   tokenType,
		// Lets a revoke-all marker tell a session opened right after it
		// from one it revokes.
		IssuedAtMs: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return tokenString, nil
}

// Verify checks signature and expiry. It returns ErrTokenExpired when the
// token is past exp and ErrTokenInvalid for any other failure.
func (tm *TokenManager) Verify(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, tm.keyFunc,
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", models.ErrTokenInvalid, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, models.ErrTokenInvalid
	}

	return claims, nil
}

// VerifySignature checks only that the token was signed by this manager.
// Expired tokens pass. Logout uses it so that nothing unsigned reaches the
// blacklist.
func (tm *TokenManager) VerifySignature(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, tm.keyFunc, jwt.WithoutClaimsValidation())
	if err != nil || !token.Valid {
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}

func (tm *TokenManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return tm.secret, nil
}

// VerifyAccess verifies the token and requires type "access".
func (tm *TokenManager) VerifyAccess(tokenString string) (*models.TokenClaims, error) {
	return tm.verifyType(tokenString, models.TokenTypeAccess)
}

// VerifyRefresh verifies the token and requires type "refresh".
func (tm *TokenManager) VerifyRefresh(tokenString string) (*models.TokenClaims, error) {
	return tm.verifyType(tokenString, models.TokenTypeRefresh)
}

func (tm *TokenManager) verifyType(tokenString, want string) (*models.TokenClaims, error) {
	claims, err := tm.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, models.ErrWrongTokenType
	}
	return claims, nil
}

// DecodeUnsafe reads claims without checking the signature or expiry.
// It returns nil for anything that is not a well-formed JWT and never panics.
func DecodeUnsafe(tokenString string) *models.TokenClaims {
	claims := &models.TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil
	}
	return claims
}
