package repositories

import (
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/pkg/auth"
	"github.com/google/uuid"
)

// prepareNewUser fills identity defaults and hashes the initial password.
func prepareNewUser(user *models.User, now time.Time) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.AccountStatus == "" {
		user.AccountStatus = models.AccountStatusActive
	}
	user.CreatedAt = now
	return prepareUser(user, now)
}

// prepareUser runs before every write. A non-empty Password is checked
// against the strength rules, hashed and cleared.
func prepareUser(user *models.User, now time.Time) error {
	if user.Password != "" {
		if err := auth.ValidatePassword(user.Password); err != nil {
			return models.NewError(models.ErrValidation, "VALIDATION_ERROR", err.Error())
		}

		hash, err := auth.HashPassword(user.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		user.Password = ""
	}

	if user.PasswordHash == "" {
		return models.NewError(models.ErrValidation, "VALIDATION_ERROR", "Password is required")
	}

	user.UpdatedAt = now
	return nil
}
