package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	pkgRetry "github.com/twinlyai/bot-backend/internal/pkg/retry"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr         string        `env:"SERVER_ADDR,notEmpty"`
	ServerWriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"120s"`

	// Database configuration
	DatabaseURL         string        `env:"DATABASE_URL,notEmpty"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// External service configurations
	LLMCfg       LLMConfig       `envPrefix:"LLM_"`
	EmbeddingCfg EmbeddingConfig `envPrefix:"EMBEDDING_"`

	RAGCfg  RAGConfig  `envPrefix:"RAG_"`
	AuthCfg AuthConfig `envPrefix:"AUTH_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// File upload configuration
	FileUploadCfg FileUploadConfig `envPrefix:"FILE_UPLOAD_"`

	RateLimitCfg RateLimitConfig `envPrefix:"RATE_LIMIT_"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// System prompt override (loaded from RAG_PROMPT_FILE)
	SystemPrompt string

	// Environment (set from flag, not from env var)
	Environment string
}

type LLMConfig struct {
	HTTPClientConfig
	Model             string               `env:"MODEL" envDefault:"qwen/qwen3-32b"`
	Temperature       float32              `env:"TEMPERATURE" envDefault:"0.2"`
	GenerationTimeout time.Duration        `env:"GENERATION_TIMEOUT" envDefault:"45s"`
	Retry             pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type EmbeddingConfig struct {
	HTTPClientConfig
	// Provider is one of tei, openai or hash
	Provider  string               `env:"PROVIDER" envDefault:"tei"`
	Model     string               `env:"MODEL" envDefault:"BAAI/bge-small-en-v1.5"`
	Dimension int                  `env:"DIMENSION" envDefault:"384"`
	BatchSize int                  `env:"BATCH_SIZE" envDefault:"32"`
	Retry     pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"60s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"60s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

type RAGConfig struct {
	DataDir       string        `env:"DATA_DIR" envDefault:"data"`
	TopK          int           `env:"TOP_K" envDefault:"4"`
	IndexCacheTTL time.Duration `env:"INDEX_CACHE_TTL" envDefault:"30m"`
	PromptFile    string        `env:"PROMPT_FILE"`
}

type AuthConfig struct {
	SecretKey string        `env:"SECRET_KEY,notEmpty"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
}

// FileUploadConfig holds file upload limits
type FileUploadConfig struct {
	MaxFileSize   int64 `env:"MAX_FILE_SIZE" envDefault:"10485760"`   // 10 MiB
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"33554432"` // 32 MiB
}

type RateLimitConfig struct {
	PerMinute int `env:"PER_MINUTE" envDefault:"30"`
	Burst     int `env:"BURST" envDefault:"10"`
}

// promptFile represents the structure of the prompt override file
type promptFile struct {
	System string `yaml:"system"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := loadSystemPrompt(cfg); err != nil {
		return nil, fmt.Errorf("load system prompt: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		errors = append(errors, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		errors = append(errors, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
	}

	switch cfg.EmbeddingCfg.Provider {
	case "tei", "openai":
		if !cfg.EnableMocks && cfg.EmbeddingCfg.Url == "" {
			errors = append(errors, fmt.Sprintf("EMBEDDING_SERVICE_URL is required for provider %q", cfg.EmbeddingCfg.Provider))
		}
	case "hash":
	default:
		errors = append(errors, fmt.Sprintf("EMBEDDING_PROVIDER must be one of tei, openai, hash, got %q", cfg.EmbeddingCfg.Provider))
	}

	if cfg.EmbeddingCfg.Dimension < 1 {
		errors = append(errors, fmt.Sprintf("EMBEDDING_DIMENSION must be positive, got %d", cfg.EmbeddingCfg.Dimension))
	}

	if cfg.EmbeddingCfg.BatchSize < 1 || cfg.EmbeddingCfg.BatchSize > 512 {
		errors = append(errors, fmt.Sprintf("EMBEDDING_BATCH_SIZE must be between 1 and 512, got %d", cfg.EmbeddingCfg.BatchSize))
	}

	if !cfg.EnableMocks && cfg.LLMCfg.Url == "" {
		errors = append(errors, "LLM_SERVICE_URL is required when mocks are disabled")
	}

	if cfg.LLMCfg.Temperature < 0 || cfg.LLMCfg.Temperature > 2 {
		errors = append(errors, fmt.Sprintf("LLM_TEMPERATURE must be between 0 and 2, got %v", cfg.LLMCfg.Temperature))
	}

	if cfg.LLMCfg.GenerationTimeout <= 0 {
		errors = append(errors, "LLM_GENERATION_TIMEOUT must be positive")
	}

	if cfg.RAGCfg.TopK < 1 || cfg.RAGCfg.TopK > 50 {
		errors = append(errors, fmt.Sprintf("RAG_TOP_K must be between 1 and 50, got %d", cfg.RAGCfg.TopK))
	}

	if cfg.RAGCfg.DataDir == "" {
		errors = append(errors, "RAG_DATA_DIR must not be empty")
	}

	if len(cfg.AuthCfg.SecretKey) < 16 {
		errors = append(errors, "AUTH_SECRET_KEY must be at least 16 characters")
	}

	if cfg.FileUploadCfg.MaxFileSize <= 0 || cfg.FileUploadCfg.MaxFileSize > cfg.FileUploadCfg.MaxUploadSize {
		errors = append(errors, fmt.Sprintf("FILE_UPLOAD_MAX_FILE_SIZE must be between 1 and FILE_UPLOAD_MAX_UPLOAD_SIZE(%d), got %d", cfg.FileUploadCfg.MaxUploadSize, cfg.FileUploadCfg.MaxFileSize))
	}

	if cfg.RateLimitCfg.PerMinute < 1 || cfg.RateLimitCfg.PerMinute > 600 {
		errors = append(errors, fmt.Sprintf("RATE_LIMIT_PER_MINUTE must be between 1 and 600, got %d", cfg.RateLimitCfg.PerMinute))
	}

	if cfg.RateLimitCfg.Burst < 1 || cfg.RateLimitCfg.Burst > 100 {
		errors = append(errors, fmt.Sprintf("RATE_LIMIT_BURST must be between 1 and 100, got %d", cfg.RateLimitCfg.Burst))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func loadSystemPrompt(cfg *Config) error {
	path := cfg.RAGCfg.PromptFile
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("Warning: prompt file not found at %s, using the built-in system prompt\n", path)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read prompt file: %w", err)
	}

	var pf promptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parse prompt YAML: %w", err)
	}

	if err := validatePromptTemplate(pf.System); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	cfg.SystemPrompt = pf.System

	fmt.Printf("Loaded system prompt from %s\n", path)
	return nil
}

func validatePromptTemplate(system string) error {
	if strings.TrimSpace(system) == "" {
		return fmt.Errorf("prompt file contains no system prompt")
	}
	for _, placeholder := range []string{"{bot_name}", "{context}"} {
		if !strings.Contains(system, placeholder) {
			return fmt.Errorf("system prompt must contain %s", placeholder)
		}
	}
	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
