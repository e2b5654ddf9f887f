package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// FixtureFlags switch generation paths over to static fixtures.
type FixtureFlags struct {
	Plan bool
}

// Config holds the configuration for the application.
type Config struct {
	GeminiAPIKey    string
	GroqAPIKey      string
	GenerationModel string
	EmbeddingModel  string

	// Retry policy for rate-limited generation calls
	LLMMaxRetries     int
	LLMRetryBaseDelay time.Duration

	RetrievalConcurrency int

	GhostURL        string
	GhostContentKey string
	GhostAdminKey   string
	GhostTag        string

	DatabasePath       string
	RedisAddr          string
	EmbeddingCachePath string
	LogMode            string
	APIJWTSecret       string
	APIAllowedOrigins  []string
	Port               string

	FixturesDir string
	Fixtures    FixtureFlags

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	maxRetries, err := intFromEnv("LLM_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	baseDelayMS, err := intFromEnv("LLM_RETRY_BASE_DELAY_MS", 2000)
	if err != nil {
		return nil, err
	}
	concurrency, err := intFromEnv("RETRIEVAL_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	allowed, err := parseUserIDs(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, err
	}

	var adminID int64
	if s := os.Getenv("ADMIN_TELEGRAM_ID"); s != "" {
		adminID, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	ghostContentKey := os.Getenv("GHOST_CONTENT_API_KEY")
	ghostAdminKey := os.Getenv("GHOST_ADMIN_API_KEY")
	if ghostAdminKey == "" {
		// Fallback to content key if only one is provided
		ghostAdminKey = ghostContentKey
	}

	return &Config{
		GeminiAPIKey:           geminiAPIKey,
		GroqAPIKey:             os.Getenv("GROQ_API_KEY"),
		GenerationModel:        stringFromEnv("GENERATION_MODEL", "gemini-2.0-flash"),
		EmbeddingModel:         stringFromEnv("EMBEDDING_MODEL", "text-embedding-004"),
		LLMMaxRetries:          maxRetries,
		LLMRetryBaseDelay:      time.Duration(baseDelayMS) * time.Millisecond,
		RetrievalConcurrency:   concurrency,
		GhostURL:               os.Getenv("GHOST_API_URL"),
		GhostContentKey:        ghostContentKey,
		GhostAdminKey:          ghostAdminKey,
		GhostTag:               stringFromEnv("GHOST_TAG", "workout"),
		DatabasePath:           stringFromEnv("DATABASE_PATH", "data/coach.db"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		EmbeddingCachePath:     os.Getenv("EMBEDDING_CACHE_PATH"),
		LogMode:                stringFromEnv("LOG_MODE", "dev"),
		APIJWTSecret:           os.Getenv("API_JWT_SECRET"),
		APIAllowedOrigins:      splitList(os.Getenv("API_ALLOWED_ORIGINS")),
		Port:                   stringFromEnv("PORT", "8080"),
		FixturesDir:            os.Getenv("FIXTURES_DIR"),
		Fixtures:               FixtureFlags{Plan: boolFromEnv("USE_MOCK_PLAN")},
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
		AdminTelegramID:        adminID,
	}, nil
}

// GhostEnabled reports whether enough Ghost settings exist to ingest workouts.
func (c *Config) GhostEnabled() bool {
	return c.GhostURL != "" && c.GhostContentKey != ""
}

func stringFromEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intFromEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseUserIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
