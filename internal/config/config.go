package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries everything the pipeline reads from the environment.
// Credentials are injected, never embedded in source.
type Config struct {
	// Source / destination database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// LLM providers
	AnthropicAPIKey     string
	AnthropicModel      string
	GeminiAPIKey        string
	GeminiModel         string
	MockLLM             bool
	UseCLIClient        bool
	ClaudeCLIPath       string

	// Review server
	ReviewAddr         string
	ReviewJWTSecret    string
	ReviewPasswordHash string // bcrypt hash of the reviewer password

	// Pipeline defaults
	DefaultLimit int
	OutputDir    string
}

// Load reads .env (if present) and the process environment. It fails only
// on values that cannot work at all; per-command validation happens where
// the value is first used, so e.g. `qpipe detect` runs without an
// Anthropic key.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "concours_prep"),
		DBSSLMode:  getEnv("DB_SSLMODE", "require"),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		MockLLM:         getEnv("MOCK_LLM", "") == "true",
		UseCLIClient:    getEnv("USE_CLI_CLIENT", "") == "true",
		ClaudeCLIPath:   getEnv("CLAUDE_CLI_PATH", "claude"),

		ReviewAddr:         getEnv("REVIEW_ADDR", "127.0.0.1:8080"),
		ReviewJWTSecret:    getEnv("REVIEW_JWT_SECRET", ""),
		ReviewPasswordHash: getEnv("REVIEW_PASSWORD_HASH", ""),

		DefaultLimit: getEnvInt("PIPELINE_LIMIT", 50),
		OutputDir:    getEnv("OUTPUT_DIR", "./batches"),
	}

	if cfg.DBUser == "" || cfg.DBPassword == "" {
		return nil, fmt.Errorf("DB_USER and DB_PASSWORD must be set (credentials are never defaulted)")
	}

	return cfg, nil
}

// RequireLLM checks the provider credentials needed by the LLM-backed
// checkpoints. Mock and CLI modes need no key.
func (c *Config) RequireLLM() error {
	if c.MockLLM || c.UseCLIClient {
		return nil
	}
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY must be set (or MOCK_LLM=true for local runs)")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY must be set for the dual-provider category check")
	}
	return nil
}

// RequireReview checks the secrets the review server needs.
func (c *Config) RequireReview() error {
	if c.ReviewJWTSecret == "" {
		return fmt.Errorf("REVIEW_JWT_SECRET must be set")
	}
	if c.ReviewPasswordHash == "" {
		return fmt.Errorf("REVIEW_PASSWORD_HASH must be set (bcrypt hash of the reviewer password)")
	}
	return nil
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("WARN: %s is not an integer, using default %d", key, fallback)
	}
	return fallback
}
