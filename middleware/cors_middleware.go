package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// NewCORS only admits the configured frontend origin. Preflight requests are answered
// by the returned handler and never reach the route.
func NewCORS(allowedOrigin string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-Key"},
		AllowCredentials: true,
	})
}
