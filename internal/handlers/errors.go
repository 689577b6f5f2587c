package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// ErrorWriter turns service errors into error envelopes. With Development
// set, internal causes are appended to the detail.
type ErrorWriter struct {
	Logger      *slog.Logger
	Development bool
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (ew ErrorWriter) Write(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := models.AsError(err)
	if !ok {
		appErr = models.Internal("INTERNAL_ERROR", "An unexpected error occurred", err)
	}

	// Only the kind decides the status; an internal error whose cause is,
	// say, ErrNotFound is still a 500.
	status := statusFor(appErr.Kind)
	detail := appErr.Message
	if status == http.StatusInternalServerError {
		ew.Logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("code", appErr.Code),
			slog.Any("error", err))
		if ew.Development && appErr.Err != nil {
			detail = detail + ": " + appErr.Err.Error()
		}
	}

	pkghttp.WriteError(w, status, appErr.Code, detail)
}
