package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/services"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Register(ctx context.Context, in services.RegisterInput) (*models.Session, error)
	AuthBack(ctx context.Context, user *models.User) (*models.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
	Logout(ctx context.Context, accessToken, refreshToken string)
	LogoutAll(ctx context.Context, userID string) error
}

// VerificationServiceInterface defines the interface for email verification
type VerificationServiceInterface interface {
	Consume(ctx context.Context, rawToken string) (*models.User, error)
	Resend(ctx context.Context, email string) error
}

// PasswordResetServiceInterface defines the interface for the reset flow
type PasswordResetServiceInterface interface {
	Request(ctx context.Context, email string) error
	VerifyToken(ctx context.Context, rawToken string) (string, error)
	Reset(ctx context.Context, rawToken, newPassword string) (*models.User, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service       AuthServiceInterface
	verification  VerificationServiceInterface
	passwordReset PasswordResetServiceInterface
	cookies       auth.CookieConfig
	errors        ErrorWriter
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	service AuthServiceInterface,
	verification VerificationServiceInterface,
	passwordReset PasswordResetServiceInterface,
	cookies auth.CookieConfig,
	errs ErrorWriter,
) *AuthHandler {
	return &AuthHandler{
		service:       service,
		verification:  verification,
		passwordReset: passwordReset,
		cookies:       cookies,
		errors:        errs,
	}
}

// Request DTOs

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Stay     bool   `json:"stay"`
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"min=2"`
	LastName  string `json:"lastName" validate:"min=2"`
	Stay      bool   `json:"stay"`
}

// RefreshRequest carries the refresh token for clients that do not send
// the refresh cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	Stay         bool   `json:"stay"`
}

type TokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse is the profile plus the freshly issued token pair.
type SessionResponse struct {
	*models.User
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type EmailResponse struct {
	Email string `json:"email"`
}

func sessionMessage(user *models.User, action string) string {
	return fmt.Sprintf("User \"%s : %s %s\" has %s successfully.", user.Email, user.LastName, user.FirstName, action)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, status int, tag, action string, session *models.Session, stay bool) {
	auth.SetSessionCookies(w, session.Tokens.AccessToken, session.Tokens.RefreshToken, stay, h.cookies)
	pkghttp.WriteSuccess(w, status, tag, SessionResponse{
		User:         session.User,
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
	}, sessionMessage(session.User, action))
}

// bind decodes and validates a request body, writing the 400 itself.
func bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		pkghttp.WriteBadRequest(w, "ERROR_INVALID_INPUT", "Invalid request body")
		return false
	}
	if msgs := ValidationMessages(dst); len(msgs) > 0 {
		pkghttp.WriteBadRequest(w, "ERROR_INVALID_INPUT", invalidInput(msgs))
		return false
	}
	return true
}

// Login handles user login
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !bind(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	h.writeSession(w, http.StatusAccepted, "LOGIN_SUCCESS", "logged in", session, req.Stay)
}

// Register handles user registration
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "ERROR_INVALID_INPUT", "Invalid request body")
		return
	}

	msgs := ValidationMessages(&req)
	if req.Password != "" {
		var pve *pkgauth.PasswordValidationError
		if err := pkgauth.ValidatePassword(req.Password); errors.As(err, &pve) {
			msgs = append(msgs, pve.Errors...)
		}
	}
	if len(msgs) > 0 {
		pkghttp.WriteBadRequest(w, "ERROR_INVALID_INPUT", invalidInput(msgs))
		return
	}

	session, err := h.service.Register(r.Context(), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	h.writeSession(w, http.StatusCreated, "REGISTER_SUCCESS", "registered", session, req.Stay)
}

// AuthBack re-validates the current session and rotates its tokens.
// @Router /auth [get]
func (h *AuthHandler) AuthBack(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "USER_NOT_LOGGED_IN", "You aren't logged in to do this action.")
		return
	}

	stay, _ := strconv.ParseBool(r.URL.Query().Get("stay"))

	session, err := h.service.AuthBack(r.Context(), user)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	h.writeSession(w, http.StatusAccepted, "AUTH_BACK", "logged back", session, stay)
}

// Refresh handles token refresh. The refresh cookie wins over the body.
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !bind(w, r, &req) {
		return
	}

	token := auth.GetCookieValue(r, auth.RefreshTokenCookie)
	if token == "" {
		token = req.RefreshToken
	}

	session, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	auth.SetSessionCookies(w, session.Tokens.AccessToken, session.Tokens.RefreshToken, req.Stay, h.cookies)
	pkghttp.WriteSuccess(w, http.StatusOK, "REFRESH_TOKEN_SUCCESS", SessionResponse{
		User:         session.User,
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
	}, "Token refreshed successfully")
}

// Logout blacklists the presented tokens and clears the session cookies.
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	// A malformed body only loses the refresh token.
	_ = decodeJSON(w, r, &req)

	h.service.Logout(r.Context(), auth.ExtractToken(r), refreshTokenFrom(r, req.RefreshToken))

	auth.ClearSessionCookies(w, h.cookies)
	pkghttp.WriteSuccess(w, http.StatusOK, "LOGOUT_SUCCESS", nil, "Logged out successfully")
}

// LogoutAll revokes every token issued to the caller.
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "USER_NOT_LOGGED_IN", "You aren't logged in to do this action.")
		return
	}

	if err := h.service.LogoutAll(r.Context(), user.ID); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	auth.ClearSessionCookies(w, h.cookies)
	pkghttp.WriteSuccess(w, http.StatusOK, "LOGOUT_ALL_SUCCESS", nil, "Logged out from all devices")
}

// refreshTokenFrom prefers the body value; the refresh cookie is only sent
// to the refresh path, so most other requests carry it in the body.
func refreshTokenFrom(r *http.Request, body string) string {
	if body != "" {
		return body
	}
	return auth.GetCookieValue(r, auth.RefreshTokenCookie)
}

// VerifyEmail consumes a verification token.
// @Router /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := h.verification.Consume(r.Context(), req.Token)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "EMAIL_VERIFIED", EmailResponse{Email: user.Email}, "Email verified successfully")
}

// @Router /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !bind(w, r, &req) {
		return
	}

	if err := h.verification.Resend(r.Context(), req.Email); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "VERIFICATION_EMAIL_SENT", nil,
		"If an account with that email exists, a verification email has been sent")
}

// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !bind(w, r, &req) {
		return
	}

	if err := h.passwordReset.Request(r.Context(), req.Email); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "PASSWORD_RESET_EMAIL_SENT", nil,
		"If an account with that email exists, a password reset link has been sent")
}

// @Router /auth/verify-reset-token [post]
func (h *AuthHandler) VerifyResetToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !bind(w, r, &req) {
		return
	}

	email, err := h.passwordReset.VerifyToken(r.Context(), req.Token)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "TOKEN_VALID", EmailResponse{Email: email}, "Token is valid")
}

// ResetPassword sets a new password. Strength rules are enforced by the
// user store, so failures surface as VALIDATION_ERROR.
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := h.passwordReset.Reset(r.Context(), req.Token, req.Password)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "PASSWORD_RESET_SUCCESS", EmailResponse{Email: user.Email}, "Password reset successfully")
}
