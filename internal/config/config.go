package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration values.
type Config struct {
	// OpenRouter (OpenAI-compatible) LLM access
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	Model             string

	// SurrealDB connection (cache + package-name index)
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// HTTP server
	Host string
	Port int

	// Local staging area for generated package ZIPs
	CacheDir string

	// Live-registry augmentation
	AugmentConcurrency int

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		Model:             getEnv("PAIPI_MODEL", "anthropic/claude-3.5-sonnet"),

		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "paipi"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "cache"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		Host: getEnv("PAIPI_HOST", "127.0.0.1"),
		Port: getEnvInt("PAIPI_PORT", 8000),

		CacheDir: getEnv("PAIPI_CACHE_DIR", "pypi_cache"),

		AugmentConcurrency: getEnvInt("PAIPI_AUGMENT_CONCURRENCY", 10),

		LogFile:  getEnv("PAIPI_LOG_FILE", "/tmp/paipi.log"),
		LogLevel: parseLogLevel(getEnv("PAIPI_LOG_LEVEL", "INFO")),
	}
}

// Validate checks that all required settings are present. A missing API key is
// a startup failure, not a per-request one: the service must refuse to start
// rather than degrade every search.
func (c Config) Validate() error {
	if c.OpenRouterAPIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY environment variable is required")
	}
	if c.AugmentConcurrency < 1 {
		return fmt.Errorf("PAIPI_AUGMENT_CONCURRENCY must be at least 1, got %d", c.AugmentConcurrency)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
