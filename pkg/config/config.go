package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	apperrors "notegraph/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Storage
	DBPath string

	// Embeddings
	EmbeddingProvider string // "openai" or "ollama"
	EmbeddingModel    string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OllamaURL         string
	EmbedRateLimit    float64 // requests per second, 0 disables limiting
	EmbedBurst        int
	MaxEmbedChars     int

	// Graph building
	MaxRelationshipsPerNote int
	BuildMinSimilarity      float64
	QueryMinSimilarity      float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		DBPath:                  getEnv("NOTEGRAPH_DB", ""),
		EmbeddingProvider:       getEnv("EMBEDDING_PROVIDER", "openai"),
		EmbeddingModel:          getEnv("EMBEDDING_MODEL", ""),
		OpenAIAPIKey:            getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:           getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OllamaURL:               getEnv("OLLAMA_URL", "http://localhost:11434"),
		EmbedRateLimit:          getEnvFloat("EMBED_RATE_LIMIT", 5),
		EmbedBurst:              getEnvInt("EMBED_BURST", 1),
		MaxEmbedChars:           getEnvInt("MAX_EMBED_CHARS", 8000),
		MaxRelationshipsPerNote: getEnvInt("MAX_RELATIONSHIPS_PER_NOTE", 20),
		BuildMinSimilarity:      getEnvFloat("BUILD_MIN_SIMILARITY", 0.6),
		QueryMinSimilarity:      getEnvFloat("QUERY_MIN_SIMILARITY", 0.7),
	}

	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = defaultModel(cfg.EmbeddingProvider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are usable
func (c *Config) Validate() error {
	switch c.EmbeddingProvider {
	case "openai", "ollama":
	default:
		return apperrors.NewConfigValidationFailed("EMBEDDING_PROVIDER", fmt.Sprintf("unknown provider %q", c.EmbeddingProvider))
	}
	if c.EmbedRateLimit < 0 {
		return apperrors.NewConfigValidationFailed("EMBED_RATE_LIMIT", "must not be negative")
	}
	if c.EmbedBurst < 1 {
		return apperrors.NewConfigValidationFailed("EMBED_BURST", "must be at least 1")
	}
	if c.MaxEmbedChars < 1 {
		return apperrors.NewConfigValidationFailed("MAX_EMBED_CHARS", "must be at least 1")
	}
	if c.MaxRelationshipsPerNote < 0 {
		return apperrors.NewConfigValidationFailed("MAX_RELATIONSHIPS_PER_NOTE", "must not be negative")
	}
	if c.BuildMinSimilarity < -1 || c.BuildMinSimilarity > 1 {
		return apperrors.NewConfigValidationFailed("BUILD_MIN_SIMILARITY", "must be within [-1, 1]")
	}
	if c.QueryMinSimilarity < -1 || c.QueryMinSimilarity > 1 {
		return apperrors.NewConfigValidationFailed("QUERY_MIN_SIMILARITY", "must be within [-1, 1]")
	}
	// OpenAI key is checked when the provider is constructed, so read-only
	// commands work without one
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func defaultModel(provider string) string {
	if provider == "ollama" {
		return "nomic-embed-text"
	}
	return "text-embedding-3-small"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
