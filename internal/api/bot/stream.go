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

// ChatStream handles POST /bots/{bot_id}/chat/stream as server-sent events.
// Text arrives in "data" events, the stream ends with a "done" or an "error" event.
func (h *Handler) ChatStream(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "bot_id")
	ctx := logger.WithAction(r.Context(), "ChatStream")
	identity, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		response.UsecaseError(ctx, w, entity.ErrUnauthorized)
		return
	}

	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	chunks, err := h.usecase.ChatStream(ctx, identity, botID, req)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	sent := 0
	for chunk := range chunks {
		if chunk.Err != nil {
			status, message := response.Status(chunk.Err)
			ctxzap.Error(ctx, "chat stream failed", zap.Int("status", status), zap.Error(chunk.Err))
			writeEvent(w, "error", entity.ErrorResponse{Error: http.StatusText(status), Message: message})
			_ = rc.Flush()
			return
		}

		if err := writeEvent(w, "", entity.StreamEvent{Text: chunk.Text}); err != nil {
			ctxzap.Info(ctx, "client went away during stream", zap.Error(err))
			return
		}
		_ = rc.Flush()
		sent++
	}

	if ctx.Err() != nil {
		ctxzap.Info(ctx, "chat stream cancelled", zap.Error(ctx.Err()))
		return
	}

	writeEvent(w, "done", struct{}{})
	_ = rc.Flush()

	ctxzap.Info(ctx, "chat stream finished", zap.Int("events", sent))
}

func writeEvent(w http.ResponseWriter, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
