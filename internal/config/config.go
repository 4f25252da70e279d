package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	// Storage
	DatabaseDriver string // "postgres", "sqlite" or "memory"
	DatabaseURL    string
	SQLitePath     string
	TablePrefix    string
	// Auth
	SecretKey     string
	JWTAlgorithms []string
	JWKSURL       string // Optional; when set, tokens are verified against this JWKS instead of SecretKey
	// Upstream completion pool
	Upstreams         []UpstreamConfig
	UpstreamModel     string
	UpstreamLoraID    string
	UpstreamTimeout   time.Duration
	Temperature       float32
	MaxTokens         int
	ResponseMode      string // "auto", "stream" or "buffered"
	OverloadThreshold float64
	// Logging
	LogFormat   string // "json" or "text"
	LogDir      string
	LogMaxFiles int
	// Debug flags
	Debug bool // Includes internal error detail in 500 responses
}

func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "dev")

	cfg := &Config{
		Port:        getEnv("PORT", "5002"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:5001"),
		// Storage
		DatabaseDriver: getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:    getEnv("DATABASE_URL", os.Getenv("SUPABASE_DB_URL")),
		SQLitePath:     getEnv("SQLITE_PATH", "data/chatrelay.db"),
		TablePrefix:    getTablePrefix(env),
		// Auth
		SecretKey:     getEnv("SECRET_KEY", "dummy_secret"),
		JWTAlgorithms: splitList(getEnv("JWT_ALGORITHMS", "HS256")),
		JWKSURL:       getEnv("JWKS_URL", ""),
		// Upstream completion pool
		UpstreamModel:     getEnv("UPSTREAM_MODEL", DefaultModel),
		UpstreamLoraID:    getEnv("UPSTREAM_LORA_ID", "0"),
		UpstreamTimeout:   getDuration("UPSTREAM_TIMEOUT", 5*time.Minute),
		Temperature:       float32(getFloat("UPSTREAM_TEMPERATURE", DefaultTemperature)),
		MaxTokens:         getInt("UPSTREAM_MAX_TOKENS", DefaultMaxTokens),
		ResponseMode:      getEnv("RESPONSE_MODE", "auto"),
		OverloadThreshold: getFloat("OVERLOAD_THRESHOLD", DefaultOverloadThreshold),
		// Logging
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getInt("LOG_MAX_FILES", 10),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}

	upstreams, err := loadUpstreams(cfg)
	if err != nil {
		return nil, err
	}
	cfg.Upstreams = upstreams

	return cfg, nil
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var (an explicit empty value is honored)
	if prefix, ok := os.LookupEnv("TABLE_PREFIX"); ok {
		return prefix
	}

	switch env {
	case "prod":
		return ""
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getDuration accepts Go durations ("90s") or plain seconds ("90")
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
