package embedder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/twinlyai/bot-backend/internal/config"
	"github.com/twinlyai/bot-backend/internal/integration/common"
	pkghttp "github.com/twinlyai/bot-backend/pkg/http"
	"go.uber.org/zap"
)

const teiEmbedEndpoint = "/embed"

var _ embedding.Embedder = &TEIConnector{}

// TEIConnector calls a text-embeddings-inference server hosting a sentence embedding model
// such as BAAI/bge-small-en-v1.5.
type TEIConnector struct {
	connector *pkghttp.Connector
	logger    *zap.Logger
}

type teiEmbedRequest struct {
	Inputs    []string `json:"inputs"`
	Normalize bool     `json:"normalize"`
	Truncate  bool     `json:"truncate"`
}

func NewTEIConnector(cfg config.EmbeddingConfig, logger *zap.Logger) *TEIConnector {
	return &TEIConnector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		logger:    logger,
	}
}

func (c *TEIConnector) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	ctxzap.Debug(ctx, "embedding texts via TEI", zap.Int("count", len(texts)))

	var vectors [][]float64
	err := c.connector.DoRequest(ctx, http.MethodPost, teiEmbedEndpoint, &teiEmbedRequest{
		Inputs:    texts,
		Normalize: true,
		Truncate:  true,
	}, &vectors)
	if err != nil {
		return nil, fmt.Errorf("TEI embed request: %w", err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("TEI returned %d embeddings for %d texts", len(vectors), len(texts))
	}

	return vectors, nil
}
