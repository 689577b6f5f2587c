package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 401, "LOGIN_ERROR", "Invalid email or password")

	assert.Equal(t, 401, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 401, resp.Code)
	assert.Equal(t, "LOGIN_ERROR", resp.Message)
	assert.Equal(t, "Invalid email or password", resp.Error)
}

func TestWriteError_SuccessCodeIsCoerced(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 200, "BROKEN", "detail")

	assert.Equal(t, 500, w.Code)
}

func TestCommonErrorWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w *httptest.ResponseRecorder)
		status int
		tag    string
	}{
		{"bad request", func(w *httptest.ResponseRecorder) { pkghttp.WriteBadRequest(w, "VALIDATION_ERROR", "x") }, 400, "VALIDATION_ERROR"},
		{"unauthorized", func(w *httptest.ResponseRecorder) { pkghttp.WriteUnauthorized(w, "TOKEN_REVOKED", "x") }, 401, "TOKEN_REVOKED"},
		{"forbidden", func(w *httptest.ResponseRecorder) { pkghttp.WriteForbidden(w, "ACCOUNT_LOCKED", "x") }, 403, "ACCOUNT_LOCKED"},
		{"not found", func(w *httptest.ResponseRecorder) { pkghttp.WriteNotFound(w, "USER_NOT_FOUND", "x") }, 404, "USER_NOT_FOUND"},
		{"too many requests", func(w *httptest.ResponseRecorder) { pkghttp.WriteTooManyRequests(w, "x") }, 429, "RATE_LIMIT_EXCEEDED"},
		{"internal", func(w *httptest.ResponseRecorder) { pkghttp.WriteInternalError(w, "LOGIN_ERROR") }, 500, "LOGIN_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.status, w.Code)
			var resp pkghttp.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.tag, resp.Message)
			assert.Equal(t, tt.status, resp.Code)
		})
	}
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteSuccess(w, 201, "REGISTER_SUCCESS", map[string]bool{"emailVerified": false}, "User registered")

	assert.Equal(t, 201, w.Code)

	var resp struct {
		Status  string          `json:"status"`
		Data    map[string]bool `json:"data"`
		Message string          `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "REGISTER_SUCCESS", resp.Status)
	assert.Equal(t, "User registered", resp.Message)
	assert.False(t, resp.Data["emailVerified"])
}

func TestWriteSuccess_ErrorCodeIsCoerced(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteSuccess(w, 404, "OOPS", nil, "")

	assert.Equal(t, 200, w.Code)
}
