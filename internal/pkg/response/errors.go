package response

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/twinlyai/bot-backend/internal/entity"
	"go.uber.org/zap"
)

// retryAfterSeconds is advertised to clients when generation is unavailable
const retryAfterSeconds = 10

// Status maps a usecase error to the HTTP status and the message shown to the client
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, entity.ErrEmptyMessage):
		return http.StatusBadRequest, "Message cannot be empty"
	case errors.Is(err, entity.ErrUnknownRole),
		errors.Is(err, entity.ErrInvalidParameter),
		errors.Is(err, entity.ErrMissingField),
		errors.Is(err, entity.ErrUserExists),
		errors.Is(err, entity.ErrUnsupportedFileType),
		errors.Is(err, entity.ErrExtractionFailed),
		errors.Is(err, entity.ErrEmptyDocument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, entity.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, entity.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Incorrect email or password"
	case errors.Is(err, entity.ErrUnauthorized):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden, "API key does not have permission for this bot"
	case errors.Is(err, entity.ErrBotNotIndexed):
		return http.StatusNotFound, "Bot index not found. Please upload a resume."
	case errors.Is(err, entity.ErrBotNotFound):
		return http.StatusNotFound, "Bot not found"
	case errors.Is(err, entity.ErrAPIKeyNotFound):
		return http.StatusNotFound, "API key not found"
	case errors.Is(err, entity.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, entity.ErrRateLimited):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, entity.ErrGenerationTimeout):
		return http.StatusServiceUnavailable, "The model took too long to answer, please retry"
	case errors.Is(err, entity.ErrGenerationUnavailable):
		return http.StatusServiceUnavailable, "The model is temporarily unavailable, please retry"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// UsecaseError logs err and writes the mapped error response
func UsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	status, message := Status(err)

	switch {
	case status >= http.StatusInternalServerError:
		ctxzap.Error(ctx, "request failed", zap.Int("status", status), zap.Error(err))
	default:
		ctxzap.Info(ctx, "request rejected", zap.Int("status", status), zap.Error(err))
	}

	switch status {
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	Error(w, status, message)
}
