package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultPricingURL is the community pricing catalog consumed by the
// pricing resolver. The document maps provider-prefixed model names to
// per-token USD rates.
const DefaultPricingURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"

type Config struct {
	// Server
	APIPort     int
	BackendURL  string
	FrontendURL string

	// Database
	DatabasePath   string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Pricing catalog
	PricingURL       string
	PricingCachePath string

	// Auth
	SecretKey       string
	SessionTTLHours int

	// Rate limiting
	RateLimitEnabled   bool
	RateLimitPerMinute int
	RateLimitBurst     int

	// Logging
	LogLevel  string
	LogFormat string // "json" or "text"
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnvInt("BURNTOP_API_PORT", 8080),
		BackendURL:         getEnv("BURNTOP_BACKEND_URL", "http://localhost:8080"),
		FrontendURL:        getEnv("BURNTOP_FRONTEND_URL", "http://localhost:5173"),
		DatabasePath:       getEnv("BURNTOP_DATABASE_PATH", "./data/burntop.duckdb"),
		DBMaxOpenConns:     getEnvInt("BURNTOP_DB_MAX_OPEN_CONNS", 5),
		DBMaxIdleConns:     getEnvInt("BURNTOP_DB_MAX_IDLE_CONNS", 10),
		PricingURL:         getEnv("BURNTOP_PRICING_URL", DefaultPricingURL),
		PricingCachePath:   getEnv("BURNTOP_PRICING_CACHE_PATH", ""),
		SecretKey:          getEnv("BURNTOP_SECRET_KEY", ""),
		SessionTTLHours:    getEnvInt("BURNTOP_SESSION_TTL_HOURS", 24*30),
		RateLimitEnabled:   getEnvBool("BURNTOP_RATE_LIMIT_ENABLED", false),
		RateLimitPerMinute: getEnvInt("BURNTOP_RATE_LIMIT_PER_MINUTE", 120),
		RateLimitBurst:     getEnvInt("BURNTOP_RATE_LIMIT_BURST", 30),
		LogLevel:           getEnv("BURNTOP_LOG_LEVEL", "INFO"),
		LogFormat:          getEnv("BURNTOP_LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if len(c.SecretKey) < 32 {
		return fmt.Errorf("BURNTOP_SECRET_KEY must be at least 32 characters, got %d", len(c.SecretKey))
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("BURNTOP_API_PORT out of range: %d", c.APIPort)
	}
	if c.DBMaxOpenConns < 1 {
		return fmt.Errorf("BURNTOP_DB_MAX_OPEN_CONNS must be at least 1, got %d", c.DBMaxOpenConns)
	}
	if c.RateLimitEnabled && c.RateLimitPerMinute < 1 {
		return fmt.Errorf("BURNTOP_RATE_LIMIT_PER_MINUTE must be at least 1, got %d", c.RateLimitPerMinute)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
