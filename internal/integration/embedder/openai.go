package embedder

import (
	"context"
	"fmt"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/twinlyai/bot-backend/internal/config"
	"github.com/twinlyai/bot-backend/internal/integration/common"
)

// NewOpenAIEmbedder creates an embedder for an OpenAI-compatible /embeddings endpoint
func NewOpenAIEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("EMBEDDING_TOKEN is required for the openai provider")
	}

	emb, err := openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:     cfg.Token,
		BaseURL:    cfg.Url,
		Model:      cfg.Model,
		HTTPClient: common.NewHTTPClient(cfg.HTTPClientConfig),
	})
	if err != nil {
		return nil, fmt.Errorf("create openai embedder: %w", err)
	}

	return emb, nil
}
