package http

import (
	"net/http"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// context keys for attaching request metadata
type bodySizeContextKey struct{}

var redactedHeaders = map[string]bool{
	"Authorization": true,
	"X-Api-Key":     true,
}

type logTransport struct {
	transport http.RoundTripper
}

func (t *logTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	start := time.Now()

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Any("headers", redact(req.Header)),
	}

	if size, ok := ctx.Value(bodySizeContextKey{}).(int); ok {
		fields = append(fields, zap.Int("body_bytes", size))
	}

	ctxzap.Debug(ctx, "HTTP outbound request", fields...)

	resp, err := t.transport.RoundTrip(req)
	if err != nil {
		ctxzap.Debug(ctx, "HTTP outbound request failed",
			zap.String("url", req.URL.String()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	ctxzap.Debug(ctx, "HTTP outbound response",
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	return resp, nil
}

func redact(h http.Header) http.Header {
	out := h.Clone()
	for key := range out {
		if redactedHeaders[http.CanonicalHeaderKey(key)] {
			out.Set(key, "[REDACTED]")
		}
	}
	return out
}

// WithRequestLogging wraps the HTTP transport with logging of method, URL, redacted headers and timing.
func WithRequestLogging() HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &logTransport{
			transport: rt,
		}
	})
}
