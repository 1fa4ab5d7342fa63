package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// CORS allows the configured origins to call the API from a browser.
// A "*" entry allows any origin, credentials are then not allowed.
func CORS(allowedOrigins []string) func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderAPIKey, "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-ID"},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           300,
	})
}
