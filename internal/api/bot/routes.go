package bot

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers bot management and chat. Chat accepts API keys and is rate limited.
func RegisterRoutes(r chi.Router, h *Handler, requireUser, requireChatIdentity, rateLimit func(http.Handler) http.Handler) {
	r.Route("/bots", func(r chi.Router) {
		r.Get("/public/{bot_id}", h.GetPublicBot)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/create", h.CreateBot)
			r.Get("/", h.ListBots)
			r.Patch("/{bot_id}", h.RenameBot)
			r.Delete("/{bot_id}", h.DeleteBot)
			r.Post("/{bot_id}/upload", h.Upload)
			r.Get("/{bot_id}/status", h.Status)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireChatIdentity, rateLimit)
			r.Post("/{bot_id}/chat", h.Chat)
			r.Post("/{bot_id}/chat/stream", h.ChatStream)
			r.Post("/{bot_id}/chat/export", h.ExportTranscript)
		})
	})
}
