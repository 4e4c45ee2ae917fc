package sessionkit

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfigNeedsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing secrets to fail validation")
	}
	cfg = testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config should validate: %v", err)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"refresh shorter than access": func(c *Config) { c.JWT.RefreshTTL = c.JWT.AccessTTL },
		"otp ttl":                     func(c *Config) { c.OTP.TTL = 0 },
		"otp digits":                  func(c *Config) { c.OTP.Digits = 3 },
		"otp attempts":                func(c *Config) { c.OTP.MaxAttempts = 0 },
		"notify timeout":              func(c *Config) { c.Notify.Timeout = 0 },
		"rate limit window": func(c *Config) {
			c.Security.EnableLoginRateLimit = true
			c.Security.LoginWindow = 0
		},
		"cleanup spec": func(c *Config) { c.Cleanup.ExpiredRefreshSpec = "every hour" },
	}
	for name, mutate := range cases {
		cfg := testConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "env-access-secret-0123456789abcdefghij")
	t.Setenv("JWT_REFRESH_SECRET", "env-refresh-secret-0123456789abcdefghi")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("REFRESH_TOKEN_TTL", "168h")
	t.Setenv("JWT_ISSUER", "saraha")
	t.Setenv("OTP_TTL", "15m")
	t.Setenv("NOTIFY_TIMEOUT", "3s")
	t.Setenv("LOGIN_RATE_LIMIT", "7")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv failed: %v", err)
	}
	if cfg.JWT.AccessTTL != 5*time.Minute || cfg.JWT.RefreshTTL != 168*time.Hour {
		t.Fatalf("unexpected ttls %v %v", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
	if cfg.JWT.Issuer != "saraha" || cfg.OTP.TTL != 15*time.Minute || cfg.Notify.Timeout != 3*time.Second || cfg.OTP.MaxAttempts != 3 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !cfg.Security.EnableLoginRateLimit || cfg.Security.MaxLoginAttempts != 7 {
		t.Fatalf("expected login rate limit 7, got %+v", cfg.Security)
	}
}

func TestLoadConfigFromEnvErrors(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "env-access-secret-0123456789abcdefghij")
	t.Setenv("JWT_REFRESH_SECRET", "env-refresh-secret-0123456789abcdefghi")

	t.Setenv("OTP_TTL", "ten minutes")
	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for bad duration, got %v", err)
	}

	t.Setenv("OTP_TTL", "")
	t.Setenv("LOGIN_RATE_LIMIT", "-1")
	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for bad rate limit, got %v", err)
	}

	t.Setenv("LOGIN_RATE_LIMIT", "0")
	t.Setenv("JWT_REFRESH_SECRET", "")
	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for missing secret, got %v", err)
	}
}
