package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// AccountServiceInterface defines account lifecycle operations
type AccountServiceInterface interface {
	Lock(ctx context.Context, userID, reason string) (*models.User, error)
	Unlock(ctx context.Context, userID string) (*models.User, error)
	SoftDelete(ctx context.Context, userID, accessToken, refreshToken string) error
	GetStatus(ctx context.Context, userID string) (*models.AccountStatusView, error)
}

// AccountHandler serves self-service and admin account management.
type AccountHandler struct {
	service AccountServiceInterface
	cookies auth.CookieConfig
	errors  ErrorWriter
}

func NewAccountHandler(service AccountServiceInterface, cookies auth.CookieConfig, errs ErrorWriter) *AccountHandler {
	return &AccountHandler{service: service, cookies: cookies, errors: errs}
}

type LockAccountRequest struct {
	UserID string `json:"userId" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

type UnlockAccountRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type LockAccountResponse struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// DeleteAccount soft-deletes the caller and revokes the tokens it presented.
// @Router /auth/account [delete]
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r)
	if principal == nil {
		pkghttp.WriteUnauthorized(w, "USER_NOT_LOGGED_IN", "You aren't logged in to do this action.")
		return
	}

	var req RefreshRequest
	_ = decodeJSON(w, r, &req)

	err := h.service.SoftDelete(r.Context(), principal.User.ID, principal.Token, refreshTokenFrom(r, req.RefreshToken))
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	auth.ClearSessionCookies(w, h.cookies)
	pkghttp.WriteSuccess(w, http.StatusOK, "ACCOUNT_DELETED", nil, "Account deleted successfully")
}

// @Router /auth/account/status [get]
func (h *AccountHandler) AccountStatus(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "USER_NOT_LOGGED_IN", "You aren't logged in to do this action.")
		return
	}

	view, err := h.service.GetStatus(r.Context(), user.ID)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "ACCOUNT_STATUS_RETRIEVED", view, "Account status retrieved successfully")
}

// LockAccount is admin only.
// @Router /auth/admin/lock-account [post]
func (h *AccountHandler) LockAccount(w http.ResponseWriter, r *http.Request) {
	var req LockAccountRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := h.service.Lock(r.Context(), req.UserID, req.Reason)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "ACCOUNT_LOCKED",
		LockAccountResponse{Email: user.Email, Reason: req.Reason}, "Account locked successfully")
}

// UnlockAccount is admin only.
// @Router /auth/admin/unlock-account [post]
func (h *AccountHandler) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	var req UnlockAccountRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := h.service.Unlock(r.Context(), req.UserID)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "ACCOUNT_UNLOCKED", EmailResponse{Email: user.Email}, "Account unlocked successfully")
}
