package embedder

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

var _ embedding.Embedder = &HashEmbedder{}

// HashEmbedder is a deterministic local embedder based on feature hashing of words and word bigrams.
// It needs no model weights and is used for mock runs and tests.
type HashEmbedder struct {
	dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	ctxzap.Debug(ctx, "[MOCK] hashing texts into embeddings",
		zap.Int("count", len(texts)),
		zap.Int("dimension", e.dim),
	)

	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e *HashEmbedder) embed(text string) []float64 {
	vec := make([]float64, e.dim)
	tokens := tokenize(text)

	for i, tok := range tokens {
		e.add(vec, tok, 1)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	return vec
}

func (e *HashEmbedder) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := int(sum % uint64(e.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
