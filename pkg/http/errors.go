package http

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the envelope for every response with status >= 300.
// Message carries the machine-readable tag and Error the human detail.
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// WriteError writes a JSON error envelope with the given status code
func WriteError(w http.ResponseWriter, statusCode int, tag, detail string) {
	if statusCode < 300 {
		statusCode = http.StatusInternalServerError
	}

	resp := ErrorResponse{
		Status:  "error",
		Code:    statusCode,
		Message: tag,
		Error:   detail,
	}

	writeJSON(w, statusCode, resp)
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, tag, detail string) {
	WriteError(w, http.StatusBadRequest, tag, detail)
}

func WriteUnauthorized(w http.ResponseWriter, tag, detail string) {
	WriteError(w, http.StatusUnauthorized, tag, detail)
}

func WriteForbidden(w http.ResponseWriter, tag, detail string) {
	WriteError(w, http.StatusForbidden, tag, detail)
}

func WriteNotFound(w http.ResponseWriter, tag, detail string) {
	WriteError(w, http.StatusNotFound, tag, detail)
}

func WriteTooManyRequests(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", detail)
}

func WriteInternalError(w http.ResponseWriter, tag string) {
	WriteError(w, http.StatusInternalServerError, tag, "An unexpected error occurred")
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// Encoding errors are not recoverable once the header is written.
	_ = json.NewEncoder(w).Encode(body)
}
