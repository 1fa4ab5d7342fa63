// Package embedding turns texts into normalized float32 vectors using any eino embedder.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/avast/retry-go/v4"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	pkgRetry "github.com/twinlyai/bot-backend/internal/pkg/retry"
	pkghttp "github.com/twinlyai/bot-backend/pkg/http"
	"go.uber.org/zap"
)

const pingText = "embedding backend check"

// ErrDimensionMismatch is returned when the backend answers with vectors of an unexpected size
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

type Config struct {
	Dimension int
	BatchSize int
	Retry     pkgRetry.RetryConfig
}

// Service is shared by indexing and retrieval, it is safe for concurrent use
type Service struct {
	embedder  embedding.Embedder
	dimension int
	batchSize int
	retry     pkgRetry.RetryConfig
}

func NewService(embedder embedding.Embedder, cfg Config) (*Service, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if cfg.Dimension < 1 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.Dimension)
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}

	return &Service{
		embedder:  embedder,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		retry:     cfg.Retry,
	}, nil
}

func (s *Service) Dimension() int {
	return s.dimension
}

// Ping embeds a fixed text to check that the backend is reachable and
// answers with the configured dimension
func (s *Service) Ping(ctx context.Context) error {
	if _, err := s.Embed(ctx, pingText); err != nil {
		return fmt.Errorf("ping embedding backend: %w", err)
	}
	return nil
}

func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in batches of the configured size, preserving order
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		batch := texts[start:end]

		raw, err := retry.DoWithData(
			func() ([][]float64, error) {
				return s.embedder.EmbedStrings(ctx, batch)
			},
			append(s.retry.Options(ctx, pkghttp.IsRetryable),
				retry.OnRetry(func(n uint, err error) {
					ctxzap.Warn(ctx, "embedding request failed, retrying",
						zap.Uint("attempt", n+1),
						zap.Int("batch_start", start),
						zap.Error(err),
					)
				}),
			)...,
		)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}

		if len(raw) != len(batch) {
			return nil, fmt.Errorf("embed batch %d-%d: got %d vectors for %d texts", start, end, len(raw), len(batch))
		}

		for i, vec := range raw {
			if len(vec) != s.dimension {
				return nil, fmt.Errorf("%w: text %d has %d values, expected %d", ErrDimensionMismatch, start+i, len(vec), s.dimension)
			}
			out = append(out, Normalize(vec))
		}
	}

	ctxzap.Debug(ctx, "texts embedded", zap.Int("count", len(texts)))

	return out, nil
}

// Normalize converts vec to float32 scaled to unit length. A zero vector stays zero.
func Normalize(vec []float64) []float32 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}

	norm := math.Sqrt(sum)
	out := make([]float32, len(vec))
	for i, v := range vec {
		if norm > 0 {
			v /= norm
		}
		out[i] = float32(v)
	}
	return out
}
