package auth

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/twinlyai/bot-backend/internal/api/middleware"
	"github.com/twinlyai/bot-backend/internal/entity"
	"github.com/twinlyai/bot-backend/internal/pkg/logger"
	"github.com/twinlyai/bot-backend/internal/pkg/response"
	"go.uber.org/zap"
)

type Handler struct {
	usecase AuthUsecase
}

func NewHandler(usecase AuthUsecase) *Handler {
	return &Handler{usecase: usecase}
}

// Signup handles POST /auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Signup")

	var req entity.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Info(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.usecase.Signup(ctx, &req)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Created(w, toUserResponse(user))
}

// Login handles POST /auth/login. It takes an OAuth2 password form (username, password) or a JSON body.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Login")

	var req entity.LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ctxzap.Info(ctx, "failed to decode request body", zap.Error(err))
			response.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			ctxzap.Info(ctx, "failed to parse login form", zap.Error(err))
			response.Error(w, http.StatusBadRequest, "invalid form data")
			return
		}
		req.Email = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	}

	token, err := h.usecase.Login(ctx, &req)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Success(w, token)
}

// Me handles GET /users/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Me")

	identity, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		response.UsecaseError(ctx, w, entity.ErrUnauthorized)
		return
	}

	user, err := h.usecase.GetUser(ctx, identity.UserID)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Success(w, toUserResponse(user))
}
