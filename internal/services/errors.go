package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BradenHooton/warden/internal/models"
)

const (
	msgAccountLocked  = "This account has been locked. Please contact support."
	msgAccountDeleted = "This account has been deleted"
	msgUserNotFound   = "User not found"
)

var (
	errLoginFailed     = models.NewError(models.ErrInvalidCredentials, "LOGIN_ERROR", "Invalid email or password")
	errAccountLocked   = models.NewError(models.ErrAccountLocked, "ACCOUNT_LOCKED", msgAccountLocked)
	errAccountDeleted  = models.NewError(models.ErrAccountDeleted, "ACCOUNT_DELETED", msgAccountDeleted)
	errUserNotFound    = models.NewError(models.ErrUserNotFound, "USER_NOT_FOUND", msgUserNotFound)
	errUserDisabled    = models.NewError(models.ErrAccountDisabled, "REFRESH_TOKEN_ERROR", "User not found or disabled")
	errAlreadyVerified = models.NewError(models.ErrAlreadyVerified, "EMAIL_ALREADY_VERIFIED", "Email is already verified")
)

// storeError classifies a repository failure. Validation errors from the
// hashing hook pass through; unique violations name the colliding key.
func storeError(code string, err error) error {
	if _, ok := models.AsError(err); ok {
		return err
	}
	if errors.Is(err, models.ErrDuplicateKey) {
		return models.NewError(models.ErrDuplicateKey, "DUPLICATE_KEY",
			fmt.Sprintf("These keys already exist [%s], it's not allowed to use duplicate keys", duplicateKeyName(err))).WithCause(err)
	}
	return models.Internal(code, "An unexpected error occurred", err)
}

func duplicateKeyName(err error) string {
	msg := err.Error()
	start := strings.LastIndex(msg, "[")
	end := strings.LastIndex(msg, "]")
	if start < 0 || end <= start {
		return "unknown"
	}
	return msg[start+1 : end]
}
