package config

import (
	"strings"
	"testing"
	"time"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SECRETS_KEY", testKey)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Expected default port %s, got %s", DefaultPort, cfg.Port)
	}
	if cfg.TimestampSkew != 60*time.Second {
		t.Errorf("Expected 60s skew, got %v", cfg.TimestampSkew)
	}
	if cfg.NonceTTL != 24*time.Hour {
		t.Errorf("Expected 24h nonce TTL, got %v", cfg.NonceTTL)
	}
	if cfg.VelocityLimit != 10 {
		t.Errorf("Expected velocity limit 10, got %d", cfg.VelocityLimit)
	}
}

func TestValidate_MissingSecretsKey(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "SECRETS_KEY") {
		t.Errorf("Expected SECRETS_KEY error, got %v", err)
	}
}

func TestValidate_ShortSecretsKey(t *testing.T) {
	cfg := &Config{SecretsKey: "abc123"}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for short secrets key")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SECRETS_KEY", testKey)
	t.Setenv("TIMESTAMP_SKEW", "90s")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TimestampSkew != 90*time.Second {
		t.Errorf("Expected 90s skew, got %v", cfg.TimestampSkew)
	}
	if cfg.RateLimitPerMinute != 500 {
		t.Errorf("Expected rate limit 500, got %d", cfg.RateLimitPerMinute)
	}
}

func TestEnvHelpers(t *testing.T) {
	cfg := &Config{SecretsKey: testKey, Env: "production"}
	if cfg.IsDevelopment() {
		t.Error("Expected not development")
	}
	if !cfg.IsProduction() {
		t.Error("Expected production")
	}
}
