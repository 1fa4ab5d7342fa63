package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/twinlyai/bot-backend/internal/api"
	apikeyapi "github.com/twinlyai/bot-backend/internal/api/apikey"
	authapi "github.com/twinlyai/bot-backend/internal/api/auth"
	botapi "github.com/twinlyai/bot-backend/internal/api/bot"
	"github.com/twinlyai/bot-backend/internal/config"
	"github.com/twinlyai/bot-backend/internal/integration/embedder"
	"github.com/twinlyai/bot-backend/internal/integration/llm"
	"github.com/twinlyai/bot-backend/internal/pkg/security"
	"github.com/twinlyai/bot-backend/internal/pkg/validator"
	"github.com/twinlyai/bot-backend/internal/rag"
	"github.com/twinlyai/bot-backend/internal/rag/chunker"
	ragembedding "github.com/twinlyai/bot-backend/internal/rag/embedding"
	"github.com/twinlyai/bot-backend/internal/rag/prompt"
	"github.com/twinlyai/bot-backend/internal/rag/vectorindex"
	"github.com/twinlyai/bot-backend/internal/repository"
	"github.com/twinlyai/bot-backend/internal/usecase/apikey"
	"github.com/twinlyai/bot-backend/internal/usecase/auth"
	"github.com/twinlyai/bot-backend/internal/usecase/bot"
	"go.uber.org/zap"
)

// embeddingCheckTimeout bounds the startup check of the embedding backend
const embeddingCheckTimeout = 30 * time.Second

// Build wires the bot backend. ctx bounds startup work such as the database
// ping and the embedding backend check.
func Build(ctx context.Context) (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	db, err := openPool(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	if err := repository.RunMigrations(cfg.DatabaseURL, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserPostgres(db)
	botRepo := repository.NewBotPostgres(db)
	apiKeyRepo := repository.NewAPIKeyPostgres(db)
	logger.Info("Repositories initialized")

	pipeline, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Initialize validators
	requestValidator := validator.NewValidator(cfg.FileUploadCfg)

	// Initialize use cases
	tokens := security.NewTokenIssuer(cfg.AuthCfg.SecretKey, cfg.AuthCfg.TokenTTL)
	authUC := auth.NewUsecase(userRepo, tokens, requestValidator)
	apiKeyUC := apikey.NewUsecase(apiKeyRepo)
	botUC := bot.NewUsecase(botRepo, pipeline, requestValidator)
	logger.Info("Use cases initialized")

	// Setup router
	router := api.SetupRouter(
		api.Handlers{
			Auth:   authapi.NewHandler(authUC),
			APIKey: apikeyapi.NewHandler(apiKeyUC),
			Bot:    botapi.NewHandler(botUC, cfg.FileUploadCfg, requestValidator),
		},
		api.Authenticators{
			Sessions: authUC,
			APIKeys:  apiKeyUC,
		},
		api.RouterConfig{
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			RequestTimeout:     cfg.ServerWriteTimeout,
			RateLimitPerMinute: cfg.RateLimitCfg.PerMinute,
			RateLimitBurst:     cfg.RateLimitCfg.Burst,
		},
		logger,
	)
	logger.Info("HTTP router configured")

	// Create HTTP server
	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server: server,
		db:     db,
		logger: logger,
	}, nil
}

// buildPipeline creates the process-wide RAG pipeline.
// The embedding backend is checked once, a failure aborts startup.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*rag.Pipeline, error) {
	var (
		emb       embedding.Embedder
		chatModel model.BaseChatModel
		err       error
	)

	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		emb = embedder.NewHashEmbedder(cfg.EmbeddingCfg.Dimension)
		chatModel = llm.NewMockChatModel(logger)
	} else {
		logger.Info("Using real connectors for external services")
		emb, err = newEmbedder(ctx, cfg.EmbeddingCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("setup embedder: %w", err)
		}
		chatModel, err = llm.NewChatModel(ctx, cfg.LLMCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("setup chat model: %w", err)
		}
	}

	embeddings, err := ragembedding.NewService(emb, ragembedding.Config{
		Dimension: cfg.EmbeddingCfg.Dimension,
		BatchSize: cfg.EmbeddingCfg.BatchSize,
		Retry:     cfg.EmbeddingCfg.Retry,
	})
	if err != nil {
		return nil, fmt.Errorf("setup embedding service: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, embeddingCheckTimeout)
	defer cancel()
	if err := embeddings.Ping(checkCtx); err != nil {
		return nil, fmt.Errorf("embedding backend is not usable: %w", err)
	}
	logger.Info("Embedding backend ready",
		zap.String("provider", cfg.EmbeddingCfg.Provider),
		zap.Int("dimension", embeddings.Dimension()),
	)

	prompts, err := prompt.NewBuilder(cfg.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("setup prompt builder: %w", err)
	}

	splitter, err := chunker.NewDefault()
	if err != nil {
		return nil, fmt.Errorf("setup chunker: %w", err)
	}

	indexes := vectorindex.NewManager(cfg.RAGCfg.DataDir, cfg.RAGCfg.IndexCacheTTL)

	return rag.NewPipeline(indexes, splitter, embeddings, chatModel, prompts, rag.Config{
		TopK:              cfg.RAGCfg.TopK,
		GenerationTimeout: cfg.LLMCfg.GenerationTimeout,
		Retry:             cfg.LLMCfg.Retry,
	}), nil
}

func newEmbedder(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (embedding.Embedder, error) {
	switch cfg.Provider {
	case "tei":
		return embedder.NewTEIConnector(cfg, logger), nil
	case "openai":
		return embedder.NewOpenAIEmbedder(ctx, cfg)
	case "hash":
		logger.Warn("Using the hash embedder, retrieval quality is for testing only")
		return embedder.NewHashEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
