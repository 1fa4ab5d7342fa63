package llm

import (
	"context"
	"fmt"

	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/twinlyai/bot-backend/internal/config"
	"github.com/twinlyai/bot-backend/internal/integration/common"
	"go.uber.org/zap"
)

// NewChatModel creates the generation model client for an OpenAI-compatible endpoint (Groq by default).
// The returned model is safe for concurrent use and is shared by every bot.
func NewChatModel(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (model.BaseChatModel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("LLM_TOKEN is required")
	}

	temperature := cfg.Temperature
	chatModel, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:      cfg.Token,
		BaseURL:     cfg.Url,
		Model:       cfg.Model,
		Temperature: &temperature,
		HTTPClient:  common.NewHTTPClient(cfg.HTTPClientConfig),
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	logger.Info("chat model initialized",
		zap.String("base_url", cfg.Url),
		zap.String("model", cfg.Model),
		zap.Float32("temperature", cfg.Temperature),
	)

	return chatModel, nil
}
