package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// Global validator instance (reused across all handlers)
var validate = validator.New()

// ValidationMessages validates a request struct and returns one message per
// failing field, in declaration order.
func ValidationMessages(req any) []string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, formatValidationError(fe))
	}
	return msgs
}

// invalidInput formats collected messages the way every endpoint reports them.
func invalidInput(msgs []string) string {
	return fmt.Sprintf("Invalid input '%s'", strings.Join(msgs, ", "))
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	field := fieldLabel(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Invalid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

var fieldLabels = map[string]string{
	"Email":        "Email",
	"Password":     "Password",
	"FirstName":    "First name",
	"LastName":     "Last name",
	"Token":        "Token",
	"UserID":       "User id",
	"Reason":       "Reason",
	"RefreshToken": "Refresh token",
}

func fieldLabel(name string) string {
	if label, ok := fieldLabels[name]; ok {
		return label
	}
	return name
}

// decodeJSON reads the body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
