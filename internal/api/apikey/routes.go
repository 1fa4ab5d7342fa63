package apikey

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers API key management, all of it requires a session
func RegisterRoutes(r chi.Router, h *Handler, requireUser func(http.Handler) http.Handler) {
	r.Route("/api-keys", func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/", h.CreateKey)
		r.Get("/", h.ListKeys)
		r.Delete("/{key_id}", h.DeleteKey)
	})
}
