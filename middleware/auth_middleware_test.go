package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAPIKeyAuthMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"bearer token", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"lowercase bearer", map[string]string{"Authorization": "bearer secret"}, http.StatusOK},
		{"bare authorization", map[string]string{"Authorization": "secret"}, http.StatusOK},
		{"x-api-key header", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"malformed authorization", map[string]string{"Authorization": "Basic a b"}, http.StatusUnauthorized},
	}

	handler := APIKeyAuthMiddleware("secret", okHandler)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metadata/sources", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			handler(rec, req)

			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestAPIKeyAuthMiddleware_Disabled(t *testing.T) {
	handler := APIKeyAuthMiddleware("", okHandler)
	rec := httptest.NewRecorder()

	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAPIKey(t *testing.T) {
	handler := RequireAPIKey("secret")(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
