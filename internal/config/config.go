package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	LLMMaxTokens       int
	LLMTemperature     float64
	EmbeddingBaseURL   string
	EmbeddingModelName string
	DBPath             string
	QdrantURL          string
	QdrantCollection   string
	QdrantVectorSize   int
	APIPort            string
	LogLevel           slog.Level
	LogFormat          string

	// Retrieval tuning. The score floor and minimum context length are
	// heuristics carried over from operating the system, not contracts;
	// they stay configurable rather than hard-coded.
	RetrieveDiverseK int
	RetrieveFetchK   int
	RetrieveSimilarK int
	MMRLambda        float64
	ScoreFloor       float64
	MinContextChars  int
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "all-MiniLM-L6-v2"),
		DBPath:             getEnv("DB_PATH", "./data/docsage.db"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "documents"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	cfg.LogLevel = parseLogLevel(getEnv("LOG_LEVEL", "info"))

	var parseErr error
	cfg.LLMMaxTokens, parseErr = getEnvInt("LLM_MAX_TOKENS", 1024)
	if parseErr != nil {
		return nil, parseErr
	}
	cfg.LLMTemperature, parseErr = getEnvFloat("LLM_TEMPERATURE", 0.7)
	if parseErr != nil {
		return nil, parseErr
	}
	cfg.RetrieveDiverseK, parseErr = getEnvInt("RETRIEVE_DIVERSE_K", 5)
	if parseErr != nil {
		return nil, parseErr
	}
	cfg.RetrieveFetchK, parseErr = getEnvInt("RETRIEVE_FETCH_K", 15)
	if parseErr != nil {
		return nil, parseErr
	}
	cfg.RetrieveSimilarK, parseErr = getEnvInt("RETRIEVE_SIMILAR_K", 3)
	if parseErr != nil {
		return nil, parseErr
	}
	cfg.MMRLambda, parseErr = getEnvFloat("MMR_LAMBDA", 0.5)
	if parseErr != nil {
		return nil, parseErr
	}
	cfg.ScoreFloor, parseErr = getEnvFloat("SCORE_FLOOR", 0.1)
	if parseErr != nil {
		return nil, parseErr
	}
	cfg.MinContextChars, parseErr = getEnvInt("MIN_CONTEXT_CHARS", 100)
	if parseErr != nil {
		return nil, parseErr
	}

	// QDRANT_VECTOR_SIZE must match the output vector size of the embeddings
	// model. If the vector size changes, the Qdrant collection must be
	// recreated. A mismatch is a configuration error, never retried.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	if cfg.RetrieveDiverseK <= 0 || cfg.RetrieveSimilarK < 0 || cfg.RetrieveFetchK < cfg.RetrieveDiverseK {
		return nil, fmt.Errorf("invalid retrieval parameters: diverse_k=%d similar_k=%d fetch_k=%d",
			cfg.RetrieveDiverseK, cfg.RetrieveSimilarK, cfg.RetrieveFetchK)
	}
	if cfg.MMRLambda < 0 || cfg.MMRLambda > 1 {
		return nil, fmt.Errorf("MMR_LAMBDA must be in [0, 1], got %v", cfg.MMRLambda)
	}

	// Create ./data directory if it doesn't exist (for the DB file)
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return parsed, nil
}

// getEnvFloat gets a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return parsed, nil
}

// parseLogLevel maps a level name to a slog.Level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
