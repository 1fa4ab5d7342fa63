package bot

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/twinlyai/bot-backend/internal/api/middleware"
	"github.com/twinlyai/bot-backend/internal/config"
	"github.com/twinlyai/bot-backend/internal/entity"
	"github.com/twinlyai/bot-backend/internal/pkg/logger"
	"github.com/twinlyai/bot-backend/internal/pkg/response"
	"go.uber.org/zap"
)

// uploadFormField is the multipart field carrying the resume
const uploadFormField = "file"

type Handler struct {
	usecase   BotUsecase
	cfg       config.FileUploadConfig
	validator UploadValidator
}

func NewHandler(usecase BotUsecase, cfg config.FileUploadConfig, validator UploadValidator) *Handler {
	return &Handler{
		usecase:   usecase,
		cfg:       cfg,
		validator: validator,
	}
}

// GetPublicBot handles GET /bots/public/{bot_id}
func (h *Handler) GetPublicBot(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "bot_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("bot_id", botID),
		zap.String("action", "GetPublicBot"),
	)

	bot, err := h.usecase.GetPublic(ctx, botID)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Success(w, toPublicBotResponse(bot))
}

// CreateBot handles POST /bots/create
func (h *Handler) CreateBot(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateBot")
	identity, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		response.UsecaseError(ctx, w, entity.ErrUnauthorized)
		return
	}

	var req entity.CreateBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Info(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bot, err := h.usecase.Create(ctx, identity.UserID, req.Name)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Created(w, toBotResponse(bot))
}

// ListBots handles GET /bots
func (h *Handler) ListBots(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListBots")
	identity, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		response.UsecaseError(ctx, w, entity.ErrUnauthorized)
		return
	}

	bots, err := h.usecase.List(ctx, identity.UserID)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	out := make([]*entity.BotResponse, 0, len(bots))
	for _, b := range bots {
		out = append(out, toBotResponse(b))
	}

	ctxzap.Debug(ctx, "bots listed", zap.Int("count", len(out)))
	response.Success(w, out)
}

// RenameBot handles PATCH /bots/{bot_id}
func (h *Handler) RenameBot(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "bot_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("bot_id", botID),
		zap.String("action", "RenameBot"),
	)
	identity, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		response.UsecaseError(ctx, w, entity.ErrUnauthorized)
		return
	}

	var req entity.UpdateBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Info(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bot, err := h.usecase.Rename(ctx, identity.UserID, botID, req.Name)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Success(w, toBotResponse(bot))
}

// DeleteBot handles DELETE /bots/{bot_id}
func (h *Handler) DeleteBot(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "bot_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("bot_id", botID),
		zap.String("action", "DeleteBot"),
	)
	identity, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		response.UsecaseError(ctx, w, entity.ErrUnauthorized)
		return
	}

	if err := h.usecase.Delete(ctx, identity.UserID, botID); err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.NoContent(w)
}

// Upload handles POST /bots/{bot_id}/upload
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "bot_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("bot_id", botID),
		zap.String("action", "Upload"),
	)
	identity, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		response.UsecaseError(ctx, w, entity.ErrUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(h.cfg.MaxFileSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.UsecaseError(ctx, w, entity.ErrFileTooLarge)
			return
		}
		ctxzap.Info(ctx, "failed to parse multipart form", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		ctxzap.Info(ctx, "no file in upload", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "a file is required in the \"file\" field")
		return
	}
	defer file.Close()

	if err := h.validator.ValidateUpload(header); err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	resp, err := h.usecase.Upload(ctx, identity.UserID, &entity.UploadRequest{
		BotID:    botID,
		File:     file,
		Filename: header.Filename,
		Size:     header.Size,
	})
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Success(w, resp)
}

// Status handles GET /bots/{bot_id}/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "bot_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("bot_id", botID),
		zap.String("action", "IndexStatus"),
	)
	identity, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		response.UsecaseError(ctx, w, entity.ErrUnauthorized)
		return
	}

	status, err := h.usecase.Status(ctx, identity.UserID, botID)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Success(w, status)
}

// Chat handles POST /bots/{bot_id}/chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "bot_id")
	ctx := logger.WithAction(r.Context(), "Chat")
	identity, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		response.UsecaseError(ctx, w, entity.ErrUnauthorized)
		return
	}

	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	reply, err := h.usecase.Chat(ctx, identity, botID, req)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Success(w, reply)
}

func decodeChatRequest(w http.ResponseWriter, r *http.Request) (*entity.ChatRequest, bool) {
	var req entity.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Info(r.Context(), "failed to decode chat request", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return &req, true
}
