package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds infrastructure-level configuration loaded from the
// environment at startup.
type Config struct {
	// Database
	PostgresDSN string

	// Tokens and challenges
	SessionTTL   time.Duration
	NonceTTL     time.Duration
	LinkTokenTTL time.Duration

	// Nonce issuance throttle, per wallet address
	NonceRatePerMinute int
	NonceBurst         int

	// PII encryption master key, hex-encoded 32 bytes
	PiiMasterKey []byte

	// Optional Redis stream for auth events; empty selects in-process pub/sub
	RedisURL string

	// HTTP rate limiting, per client IP
	RateLimitRPS     int
	RateLimitBurst   int
	RateLimitEnabled bool

	// Server
	Port int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		PostgresDSN:        getEnv("POSTGRES_DSN", ""),
		SessionTTL:         getEnvDuration("SESSION_TTL", 24*time.Hour),
		NonceTTL:           getEnvDuration("NONCE_TTL", 5*time.Minute),
		LinkTokenTTL:       getEnvDuration("LINK_TOKEN_TTL", 10*time.Minute),
		NonceRatePerMinute: getEnvInt("NONCE_RATE_PER_MINUTE", 5),
		NonceBurst:         getEnvInt("NONCE_BURST", 5),
		RedisURL:           getEnv("REDIS_URL", ""),
		RateLimitRPS:       getEnvInt("RATE_LIMIT_RPS", 20),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 40),
		RateLimitEnabled:   getEnvBool("RATE_LIMIT_ENABLED", true),
		Port:               getEnvInt("PORT", 8080),
	}

	keyHex := getEnv("PII_MASTER_KEY", "")
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: PII_MASTER_KEY is not valid hex: %w", err)
		}
		cfg.PiiMasterKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required")
	}

	if len(c.PiiMasterKey) != 32 {
		return fmt.Errorf("PII_MASTER_KEY must be 32 hex-encoded bytes, got %d", len(c.PiiMasterKey))
	}

	if c.SessionTTL <= 0 || c.NonceTTL <= 0 || c.LinkTokenTTL <= 0 {
		return fmt.Errorf("SESSION_TTL, NONCE_TTL, and LINK_TOKEN_TTL must be positive")
	}

	if c.NonceRatePerMinute <= 0 || c.NonceBurst <= 0 {
		return fmt.Errorf("NONCE_RATE_PER_MINUTE and NONCE_BURST must be positive")
	}

	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	valueStr = strings.ToLower(valueStr)
	return valueStr == "true" || valueStr == "1" || valueStr == "yes"
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
