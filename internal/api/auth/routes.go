package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers signup, login and the current user endpoint
func RegisterRoutes(r chi.Router, h *Handler, requireUser func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
	})
	r.With(requireUser).Get("/users/me", h.Me)
}
