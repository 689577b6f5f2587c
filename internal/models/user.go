package models

import (
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	AccountStatusActive  = "active"
	AccountStatusLocked  = "locked"
	AccountStatusDeleted = "deleted"
)

type User struct {
	ID           string `json:"_id" bson:"_id"`
	Email        string `json:"email" bson:"email"`
	PasswordHash string `json:"-" bson:"password"`
	// Password holds a new plaintext password until the store adapter hashes it.
	Password  string `json:"-" bson:"-"`
	FirstName string `json:"firstName" bson:"firstName"`
	LastName  string `json:"lastName" bson:"lastName"`
	Role      string `json:"role" bson:"role"`
	Enable    bool   `json:"enable" bson:"enable"`

	EmailVerified            bool       `json:"emailVerified" bson:"emailVerified"`
	VerificationToken        *string    `json:"-" bson:"verificationToken"`
	VerificationTokenExpires *time.Time `json:"-" bson:"verificationTokenExpires"`

	AccountStatus string     `json:"accountStatus" bson:"accountStatus"`
	LockedAt      *time.Time `json:"lockedAt" bson:"lockedAt"`
	LockedReason  *string    `json:"lockedReason" bson:"lockedReason"`
	DeletedAt     *time.Time `json:"deletedAt" bson:"deletedAt"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (u *User) IsLocked() bool  { return u.AccountStatus == AccountStatusLocked }
func (u *User) IsDeleted() bool { return u.AccountStatus == AccountStatusDeleted }

// AccountStatusView is the read-only projection returned by status lookups.
type AccountStatusView struct {
	AccountStatus string     `json:"accountStatus"`
	EmailVerified bool       `json:"emailVerified"`
	Enable        bool       `json:"enable"`
	LockedAt      *time.Time `json:"lockedAt"`
	LockedReason  *string    `json:"lockedReason"`
	DeletedAt     *time.Time `json:"deletedAt"`
}

func (u *User) StatusView() AccountStatusView {
	return AccountStatusView{
		AccountStatus: u.AccountStatus,
		EmailVerified: u.EmailVerified,
		Enable:        u.Enable,
		LockedAt:      u.LockedAt,
		LockedReason:  u.LockedReason,
		DeletedAt:     u.DeletedAt,
	}
}
