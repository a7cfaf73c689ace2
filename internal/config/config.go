package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string

	// APIBaseURL is the root of the remote tests API (no trailing slash).
	APIBaseURL string
	APITimeout time.Duration
	// DefaultChatID is used when neither the route nor the query names an admin.
	DefaultChatID      string
	FilterTestsByOwner bool
	PageSize           int

	// RedisURL enables test-list snapshots. Empty disables them.
	RedisURL          string
	SnapshotKeyPrefix string

	SessionSecret string
	SessionExpiry time.Duration

	MutationRatePerMinute int
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		GinMode:               getEnv("GIN_MODE", "debug"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "pretty"),
		APIBaseURL:            strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000"), "/"),
		APITimeout:            time.Duration(getEnvInt("API_TIMEOUT_SECONDS", 15)) * time.Second,
		DefaultChatID:         getEnv("DEFAULT_CHAT_ID", ""),
		FilterTestsByOwner:    getEnvBool("FILTER_TESTS_BY_OWNER", true),
		PageSize:              getEnvInt("PAGE_SIZE", 10),
		RedisURL:              getEnv("REDIS_URL", ""),
		SnapshotKeyPrefix:     getEnv("SNAPSHOT_KEY_PREFIX", "test-store"),
		SessionSecret:         getEnv("SESSION_SECRET", "change-this-to-a-secure-random-string"),
		SessionExpiry:         time.Duration(getEnvInt("SESSION_EXPIRY_HOURS", 24)) * time.Hour,
		MutationRatePerMinute: getEnvInt("MUTATION_RATE_PER_MINUTE", 60),
		AllowedOrigins:        parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
