package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/twinlyai/bot-backend/internal/entity"
	"github.com/twinlyai/bot-backend/internal/pkg/logger"
	"github.com/twinlyai/bot-backend/internal/pkg/response"
	"go.uber.org/zap"
)

const HeaderAPIKey = "X-API-Key"

// Authenticator resolves a credential to the caller's identity
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*entity.Identity, error)
}

type identityKey struct{}

// IdentityFromContext returns the caller set by RequireUser or RequireChatIdentity
func IdentityFromContext(ctx context.Context) (*entity.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*entity.Identity)
	return identity, ok && identity != nil
}

func WithIdentity(ctx context.Context, identity *entity.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// RequireUser accepts only a Bearer session token
func RequireUser(sessions Authenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, r, "Not authenticated", nil)
				return
			}
			serveAuthenticated(w, r, next, sessions, token)
		})
	}
}

// RequireChatIdentity accepts an X-API-Key header or, without one, a Bearer session token
func RequireChatIdentity(sessions, apiKeys Authenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if values, ok := r.Header[http.CanonicalHeaderKey(HeaderAPIKey)]; ok {
				serveAuthenticated(w, r, next, apiKeys, strings.TrimSpace(values[0]))
				return
			}
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, r, "Not authenticated", nil)
				return
			}
			serveAuthenticated(w, r, next, sessions, token)
		})
	}
}

func serveAuthenticated(w http.ResponseWriter, r *http.Request, next http.Handler, auth Authenticator, credential string) {
	identity, err := auth.Authenticate(r.Context(), credential)
	if err != nil {
		if errors.Is(err, entity.ErrUnauthorized) {
			unauthorized(w, r, unauthorizedMessage(err), err)
			return
		}
		ctxzap.Error(r.Context(), "failed to authenticate request", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	ctx := logger.WithIdentity(WithIdentity(r.Context(), identity), identity)
	next.ServeHTTP(w, r.WithContext(ctx))
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string, err error) {
	ctxzap.Info(r.Context(), "request not authenticated", zap.String("reason", message), zap.Error(err))
	w.Header().Set("WWW-Authenticate", "Bearer")
	response.Error(w, http.StatusUnauthorized, message)
}

// unauthorizedMessage keeps the reason an authenticator attached to ErrUnauthorized
func unauthorizedMessage(err error) string {
	prefix := entity.ErrUnauthorized.Error() + ": "
	if msg, ok := strings.CutPrefix(err.Error(), prefix); ok {
		return msg
	}
	return "Could not validate credentials"
}
