package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"
)

// APIKeyAuthMiddleware validates the API key from the Authorization header (Bearer or
// bare) or the X-API-Key header. An empty apiKey disables the check.
func APIKeyAuthMiddleware(apiKey string, next http.HandlerFunc) http.HandlerFunc {
	if apiKey == "" {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		providedKey := extractAPIKey(r)

		if providedKey == "" {
			logger.Error("API key missing from request", zap.String("path", r.URL.Path))
			writeJSONError(w, http.StatusUnauthorized, "API key required. Provide it in Authorization header (Bearer <key>) or X-API-Key header")
			return
		}

		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
			logger.Error("Invalid API key provided", zap.String("path", r.URL.Path))
			writeJSONError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}

		next(w, r)
	}
}

// RequireAPIKey adapts APIKeyAuthMiddleware to the http.Handler middleware shape.
func RequireAPIKey(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return APIKeyAuthMiddleware(apiKey, next.ServeHTTP)
	}
}

func extractAPIKey(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Fields(authHeader)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		if len(parts) == 1 {
			return parts[0]
		}
		return ""
	}
	return r.Header.Get("X-API-Key")
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
