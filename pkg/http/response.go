package http

import (
	"net/http"
)

// SuccessResponse is the envelope for every response with status < 300.
type SuccessResponse struct {
	Status  string `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

// WriteSuccess writes a JSON success envelope. Status codes of 300 and above
// are a programming error and are downgraded to 200.
func WriteSuccess(w http.ResponseWriter, statusCode int, tag string, data any, message string) {
	if statusCode >= 300 {
		statusCode = http.StatusOK
	}
	writeJSON(w, statusCode, SuccessResponse{
		Status:  tag,
		Data:    data,
		Message: message,
	})
}
