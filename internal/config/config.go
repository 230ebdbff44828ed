package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all console configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Freight backend
	BackendURL string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Reference data cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Token vault
	TokenDir string

	// Login throttling
	LoginBurst     int
	LoginPerMinute int

	// Dev mode: DEV_AUTH=true substitutes a fixed actor with every
	// permission granted and skips all backend auth calls. Read once
	// at process start; never controllable by a runtime request.
	DevAuth bool
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8620),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BackendURL: getEnv("BACKEND_URL", "http://localhost:8080"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 20),

		CacheTTL: getEnvDuration("CACHE_TTL", 15*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		TokenDir: getEnv("TOKEN_DIR", defaultTokenDir()),

		LoginBurst:     getEnvInt("LOGIN_BURST", 5),
		LoginPerMinute: getEnvInt("LOGIN_PER_MINUTE", 10),

		DevAuth: getEnv("DEV_AUTH", "false") == "true",
	}
}

// defaultTokenDir places the vault under the operator's config dir so
// tokens survive console restarts, falling back to the working dir.
func defaultTokenDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".freightdesk"
	}
	return filepath.Join(base, "freightdesk")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
