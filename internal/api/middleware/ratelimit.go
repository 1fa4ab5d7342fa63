package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"github.com/twinlyai/bot-backend/internal/entity"
	"github.com/twinlyai/bot-backend/internal/pkg/response"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long the bucket of a silent credential is kept
const limiterIdleTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per credential
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	buckets *cache.Cache
}

func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		buckets: cache.New(limiterIdleTTL, 2*limiterIdleTTL),
	}
}

// Handler limits requests authenticated by RequireUser or RequireChatIdentity.
// Requests without an identity are passed through.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		reservation := rl.bucket(credentialKey(identity)).Reserve()
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			ctxzap.Warn(r.Context(), "rate limit exceeded", zap.Duration("retry_after", delay))
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			response.Error(w, http.StatusTooManyRequests, entity.ErrRateLimited.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.buckets.Get(key); ok {
		limiter := v.(*rate.Limiter)
		rl.buckets.SetDefault(key, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.buckets.SetDefault(key, limiter)
	return limiter
}

func credentialKey(identity *entity.Identity) string {
	if identity.Kind == entity.CredentialAPIKey {
		return "key:" + identity.KeyID
	}
	return "user:" + identity.UserID
}
