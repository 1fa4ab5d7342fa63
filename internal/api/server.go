package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	apikeyapi "github.com/twinlyai/bot-backend/internal/api/apikey"
	authapi "github.com/twinlyai/bot-backend/internal/api/auth"
	botapi "github.com/twinlyai/bot-backend/internal/api/bot"
	"github.com/twinlyai/bot-backend/internal/api/docs"
	"github.com/twinlyai/bot-backend/internal/api/middleware"
	"github.com/twinlyai/bot-backend/internal/pkg/response"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth   *authapi.Handler
	APIKey *apikeyapi.Handler
	Bot    *botapi.Handler
}

// Authenticators resolve the two credential kinds accepted by the API
type Authenticators struct {
	Sessions middleware.Authenticator
	APIKeys  middleware.Authenticator
}

type RouterConfig struct {
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(h Handlers, auth Authenticators, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, map[string]string{"status": "healthy"})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, map[string]string{"message": "Resume chatbot API. See /docs for the endpoints."})
	})

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	requireUser := middleware.RequireUser(auth.Sessions)
	requireChatIdentity := middleware.RequireChatIdentity(auth.Sessions, auth.APIKeys)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)

	r.Route("/api/v1", func(r chi.Router) {
		authapi.RegisterRoutes(r, h.Auth, requireUser)
		apikeyapi.RegisterRoutes(r, h.APIKey, requireUser)
		botapi.RegisterRoutes(r, h.Bot, requireUser, requireChatIdentity, limiter.Handler)
	})

	return r
}
