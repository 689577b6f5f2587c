package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
)

// Authentication and account errors. Each wraps one of the base sentinels
// above so callers can branch on either the precise kind or the HTTP class.
var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrAccountDisabled    = fmt.Errorf("%w: account is disabled", ErrUnauthorized)
	ErrAccountLocked      = fmt.Errorf("%w: account is locked", ErrForbidden)
	ErrAccountDeleted     = fmt.Errorf("%w: account is deleted", ErrForbidden)
	ErrInsufficientRole   = fmt.Errorf("%w: insufficient role", ErrForbidden)

	ErrTokenInvalid   = fmt.Errorf("%w: token is invalid", ErrUnauthorized)
	ErrTokenExpired   = fmt.Errorf("%w: token has expired", ErrUnauthorized)
	ErrWrongTokenType = fmt.Errorf("%w: wrong token type", ErrUnauthorized)
	ErrTokenRevoked   = fmt.Errorf("%w: token has been revoked", ErrUnauthorized)

	ErrValidation        = fmt.Errorf("%w: validation failed", ErrBadRequest)
	ErrDuplicateKey      = fmt.Errorf("%w: duplicate key", ErrBadRequest)
	ErrEmailExists       = fmt.Errorf("%w: email already registered", ErrBadRequest)
	ErrAlreadyVerified   = fmt.Errorf("%w: email already verified", ErrBadRequest)
	ErrAlreadyLocked     = fmt.Errorf("%w: account already locked", ErrBadRequest)
	ErrNotLocked         = fmt.Errorf("%w: account not locked", ErrBadRequest)
	ErrAlreadyDeleted    = fmt.Errorf("%w: account already deleted", ErrBadRequest)
	ErrCannotLockDeleted = fmt.Errorf("%w: cannot lock a deleted account", ErrBadRequest)

	// Opaque one-time tokens (verification, reset) are client input, not credentials.
	ErrOneTimeTokenInvalid = fmt.Errorf("%w: one-time token is invalid", ErrBadRequest)
	ErrOneTimeTokenExpired = fmt.Errorf("%w: one-time token has expired", ErrBadRequest)

	ErrUserNotFound = fmt.Errorf("%w: user not found", ErrNotFound)
)

// Error is a classified failure produced by the service layer. Kind is one of
// the sentinels above, Code is the stable machine-readable tag sent to clients
// and Message is the human-readable detail.
type Error struct {
	Kind    error
	Code    string
	Message string
	Err     error
}

// NewError builds a classified error without an underlying cause.
func NewError(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Internal wraps an unexpected failure. The cause is kept for logging only.
func Internal(code, message string, cause error) *Error {
	return &Error{Kind: ErrInternalServer, Code: code, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// WithCause returns a copy of e carrying err as its underlying cause.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// AsError extracts a classified error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
