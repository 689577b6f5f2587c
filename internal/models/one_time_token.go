package models

import (
	"time"
)

// OneTimeToken is a single-use, time-bounded proof sent to a user's inbox.
// The same shape backs both email verification and password reset; the two
// kinds live in separate stores.
type OneTimeToken struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"userId" bson:"userId"`
	Email     string    `json:"email" bson:"email"`
	TokenHash string    `json:"-" bson:"token"` // Never expose token hash
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt"`
}

// IsExpired reports whether the token is past its expiry at now.
func (t *OneTimeToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
