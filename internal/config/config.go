// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Storage
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)
	RedisURL    string // Redis connection string for nonce/counter store (optional)

	// Security
	SecretsKey        string // hex-encoded 32-byte AES key for signing secrets at rest
	TimestampSkew     time.Duration
	NonceTTL          time.Duration
	VelocityLimit     int   // antifraud requests per-IP per-minute
	FailuresToBlock   int64 // failed attempts before an adaptive IP block
	AdaptiveBlockTime time.Duration

	// PSP credentials
	StripeAPIKey        string
	StripeWebhookSecret string
	PixnowBaseURL       string
	PixnowAPIKey        string
	PixnowSecret        string
	BoletohubBaseURL    string
	BoletohubAPIKey     string
	BoletohubSecret     string

	// Background workers
	DeliveryInterval      time.Duration
	ReconciliationHourUTC int // hour of day the daily reconciliation run starts

	// Rate limiting
	RateLimitPerMinute int

	// Observability
	OTLPEndpoint string
}

// Defaults
const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultTimestampSkew   = 60 * time.Second
	DefaultNonceTTL        = 24 * time.Hour
	DefaultVelocityLimit   = 10
	DefaultRateLimit       = 120
	DefaultDeliveryPoll    = 5 * time.Minute
	DefaultReconcileHour   = 4
	DefaultFailuresToBlock = 3
	DefaultAdaptiveBlock   = time.Hour
)

// Load reads configuration from environment variables.
// It loads a .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", DefaultPort),
		Env:                   getEnv("ENV", DefaultEnv),
		LogLevel:              getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisURL:              os.Getenv("REDIS_URL"),
		SecretsKey:            os.Getenv("SECRETS_KEY"),
		TimestampSkew:         getEnvDuration("TIMESTAMP_SKEW", DefaultTimestampSkew),
		NonceTTL:              getEnvDuration("NONCE_TTL", DefaultNonceTTL),
		VelocityLimit:         int(getEnvInt64("ANTIFRAUD_VELOCITY_LIMIT", DefaultVelocityLimit)),
		FailuresToBlock:       getEnvInt64("ANTIFRAUD_FAILURES_TO_BLOCK", DefaultFailuresToBlock),
		AdaptiveBlockTime:     getEnvDuration("ANTIFRAUD_BLOCK_DURATION", DefaultAdaptiveBlock),
		StripeAPIKey:          os.Getenv("STRIPE_API_KEY"),
		StripeWebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PixnowBaseURL:         os.Getenv("PIXNOW_BASE_URL"),
		PixnowAPIKey:          os.Getenv("PIXNOW_API_KEY"),
		PixnowSecret:          os.Getenv("PIXNOW_WEBHOOK_SECRET"),
		BoletohubBaseURL:      os.Getenv("BOLETOHUB_BASE_URL"),
		BoletohubAPIKey:       os.Getenv("BOLETOHUB_API_KEY"),
		BoletohubSecret:       os.Getenv("BOLETOHUB_WEBHOOK_SECRET"),
		DeliveryInterval:      getEnvDuration("DELIVERY_POLL_INTERVAL", DefaultDeliveryPoll),
		ReconciliationHourUTC: int(getEnvInt64("RECONCILIATION_HOUR_UTC", DefaultReconcileHour)),
		RateLimitPerMinute:    int(getEnvInt64("RATE_LIMIT_PER_MINUTE", DefaultRateLimit)),
		OTLPEndpoint:          os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.SecretsKey == "" {
		return fmt.Errorf("SECRETS_KEY is required")
	}
	if len(c.SecretsKey) != 64 {
		return fmt.Errorf("SECRETS_KEY must be 64 hex characters (32 bytes)")
	}
	if c.ReconciliationHourUTC < 0 || c.ReconciliationHourUTC > 23 {
		return fmt.Errorf("RECONCILIATION_HOUR_UTC must be in [0,23]")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
