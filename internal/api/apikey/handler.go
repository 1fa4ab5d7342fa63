package apikey

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/twinlyai/bot-backend/internal/api/middleware"
	"github.com/twinlyai/bot-backend/internal/entity"
	"github.com/twinlyai/bot-backend/internal/pkg/logger"
	"github.com/twinlyai/bot-backend/internal/pkg/response"
	"go.uber.org/zap"
)

type Handler struct {
	usecase APIKeyUsecase
}

func NewHandler(usecase APIKeyUsecase) *Handler {
	return &Handler{usecase: usecase}
}

// CreateKey handles POST /api-keys
func (h *Handler) CreateKey(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateAPIKey")

	identity, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		response.UsecaseError(ctx, w, entity.ErrUnauthorized)
		return
	}

	created, err := h.usecase.Create(ctx, identity.UserID)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Created(w, created)
}

// ListKeys handles GET /api-keys
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListAPIKeys")

	identity, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		response.UsecaseError(ctx, w, entity.ErrUnauthorized)
		return
	}

	keys, err := h.usecase.List(ctx, identity.UserID)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	summaries := make([]*entity.APIKeySummary, 0, len(keys))
	for _, k := range keys {
		summaries = append(summaries, toAPIKeySummary(k))
	}

	ctxzap.Debug(ctx, "api keys listed", zap.Int("count", len(summaries)))
	response.Success(w, summaries)
}

// DeleteKey handles DELETE /api-keys/{key_id}
func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	ctx := logger.AddFields(r.Context(),
		zap.String("api_key_id", chi.URLParam(r, "key_id")),
		zap.String("action", "DeleteAPIKey"),
	)

	identity, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		response.UsecaseError(ctx, w, entity.ErrUnauthorized)
		return
	}

	if err := h.usecase.Delete(ctx, identity.UserID, chi.URLParam(r, "key_id")); err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.NoContent(w)
}
