package bot

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/twinlyai/bot-backend/internal/api/middleware"
	"github.com/twinlyai/bot-backend/internal/entity"
	"github.com/twinlyai/bot-backend/internal/pkg/logger"
	"github.com/twinlyai/bot-backend/internal/pkg/response"
	"go.uber.org/zap"
)

// ExportTranscript handles POST /bots/{bot_id}/chat/export?format=markdown|docx|pdf
func (h *Handler) ExportTranscript(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "bot_id")
	ctx := logger.WithAction(r.Context(), "ExportTranscript")
	identity, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		response.UsecaseError(ctx, w, entity.ErrUnauthorized)
		return
	}

	format := entity.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = entity.ExportMarkdown
	}

	var req entity.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Info(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	transcript, err := h.usecase.ExportTranscript(ctx, identity, botID, format, &req)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", transcript.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", transcript.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(transcript.Content)
}
