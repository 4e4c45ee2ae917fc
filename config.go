package sessionkit

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/saraha-app/sessionkit/cleanup"
	"github.com/saraha-app/sessionkit/jwt"
	"github.com/saraha-app/sessionkit/password"
)

// Config holds every tunable of the Engine. Obtain one from DefaultConfig
// or LoadConfigFromEnv and treat it as immutable after Build.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	OTP      OTPConfig
	Ledger   LedgerConfig
	Notify   NotifyConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Security SecurityConfig
	Cleanup  cleanup.Config
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures token signing. With HS256, AccessSecret and
// RefreshSecret are the shared secrets and must differ. With Ed25519 they
// hold private keys (raw or PEM).
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod jwt.SigningMethod
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig sets Argon2id costs for passwords and refresh tokens.
type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MaxSecretBytes int
	// UpgradeOnLogin rehashes a password digest produced with weaker parameters.
	UpgradeOnLogin bool
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig configures one-time codes.
type OTPConfig struct {
	TTL    time.Duration
	Digits int
	// MaxAttempts is how many wrong codes discard a pending challenge.
	MaxAttempts int
}

/*
====================================
LEDGER CONFIG
====================================
*/

// LedgerConfig controls what is recorded alongside each refresh record. The
// ledger size bound is fixed at credential.MaxLedgerSize.
type LedgerConfig struct {
	// RecordClientInfo stores the caller's User-Agent and IP (see
	// WithUserAgent and WithClientIP) on every issued record.
	RecordClientInfo bool
}

/*
====================================
NOTIFY CONFIG
====================================
*/

// NotifyConfig bounds calls to the Notifier.
type NotifyConfig struct {
	Timeout time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds optional hardening. Login throttling requires a
// Redis client on the Builder.
type SecurityConfig struct {
	EnableLoginRateLimit bool
	MaxLoginAttempts     int
	LoginWindow          time.Duration
	EnableIPThrottle     bool
	RedisPrefix          string
}

// DefaultConfig returns production defaults. Signing secrets are left empty
// and must be supplied.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
			SigningMethod: jwt.MethodHS256,
			Issuer:        "sessionkit",
		},
		Password: PasswordConfig{
			Memory:         pw.Memory,
			Time:           pw.Time,
			Parallelism:    pw.Parallelism,
			SaltLength:     pw.SaltLength,
			KeyLength:      pw.KeyLength,
			MaxSecretBytes: pw.MaxSecretBytes,
			UpgradeOnLogin: true,
		},
		OTP: OTPConfig{
			TTL:         10 * time.Minute,
			Digits:      6,
			MaxAttempts: 5,
		},
		Ledger: LedgerConfig{
			RecordClientInfo: true,
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Security: SecurityConfig{
			EnableLoginRateLimit: false,
			MaxLoginAttempts:     10,
			LoginWindow:          15 * time.Minute,
			RedisPrefix:          "sk",
		},
		Cleanup: cleanup.DefaultConfig(),
	}
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case c.JWT.AccessTTL <= 0:
		return errors.New("jwt access ttl must be positive")
	case c.JWT.RefreshTTL <= c.JWT.AccessTTL:
		return errors.New("jwt refresh ttl must exceed access ttl")
	case len(c.JWT.AccessSecret) == 0 || len(c.JWT.RefreshSecret) == 0:
		return errors.New("jwt access and refresh secrets are required")
	case c.OTP.TTL <= 0:
		return errors.New("otp ttl must be positive")
	case c.OTP.Digits < 4 || c.OTP.Digits > 10:
		return errors.New("otp digits must be between 4 and 10")
	case c.OTP.MaxAttempts < 1 || c.OTP.MaxAttempts > 20:
		return errors.New("otp max attempts must be between 1 and 20")
	case c.Notify.Timeout <= 0:
		return errors.New("notify timeout must be positive")
	case c.Audit.Enabled && c.Audit.BufferSize <= 0:
		return errors.New("audit buffer size must be positive")
	case c.Security.EnableLoginRateLimit && (c.Security.MaxLoginAttempts <= 0 || c.Security.LoginWindow <= 0):
		return errors.New("login rate limit needs positive attempts and window")
	}
	return c.Cleanup.Validate()
}

func (c *Config) passwordConfig() password.Config {
	return password.Config{
		Memory:         c.Password.Memory,
		Time:           c.Password.Time,
		Parallelism:    c.Password.Parallelism,
		SaltLength:     c.Password.SaltLength,
		KeyLength:      c.Password.KeyLength,
		MaxSecretBytes: c.Password.MaxSecretBytes,
	}
}

func (c *Config) jwtConfig(now func() time.Time) jwt.Config {
	return jwt.Config{
		AccessTTL:     c.JWT.AccessTTL,
		RefreshTTL:    c.JWT.RefreshTTL,
		SigningMethod: c.JWT.SigningMethod,
		AccessKeys:    jwt.Keys{Private: c.JWT.AccessSecret},
		RefreshKeys:   jwt.Keys{Private: c.JWT.RefreshSecret},
		Issuer:        c.JWT.Issuer,
		Audience:      c.JWT.Audience,
		Leeway:        c.JWT.Leeway,
		Now:           now,
	}
}

// ErrConfig wraps every LoadConfigFromEnv failure.
var ErrConfig = errors.New("sessionkit: config error")

// LoadConfigFromEnv starts from DefaultConfig and applies environment
// overrides:
//
//	JWT_ACCESS_SECRET, JWT_REFRESH_SECRET (required)
//	ACCESS_TOKEN_TTL, REFRESH_TOKEN_TTL, OTP_TTL, NOTIFY_TIMEOUT (durations)
//	JWT_ISSUER, JWT_AUDIENCE
//	LOGIN_RATE_LIMIT (attempts per LOGIN_RATE_WINDOW; 0 disables)
//	OTP_MAX_ATTEMPTS (wrong codes before a challenge is discarded)
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.JWT.AccessSecret = []byte(os.Getenv("JWT_ACCESS_SECRET"))
	cfg.JWT.RefreshSecret = []byte(os.Getenv("JWT_REFRESH_SECRET"))
	if v := strings.TrimSpace(os.Getenv("JWT_ISSUER")); v != "" {
		cfg.JWT.Issuer = v
	}
	cfg.JWT.Audience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", &cfg.JWT.AccessTTL},
		{"REFRESH_TOKEN_TTL", &cfg.JWT.RefreshTTL},
		{"OTP_TTL", &cfg.OTP.TTL},
		{"NOTIFY_TIMEOUT", &cfg.Notify.Timeout},
		{"LOGIN_RATE_WINDOW", &cfg.Security.LoginWindow},
	}
	for _, d := range durations {
		raw := strings.TrimSpace(os.Getenv(d.name))
		if raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrConfig, d.name, err)
		}
		*d.dst = parsed
	}

	if raw := strings.TrimSpace(os.Getenv("LOGIN_RATE_LIMIT")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("%w: LOGIN_RATE_LIMIT must be a non-negative integer", ErrConfig)
		}
		cfg.Security.EnableLoginRateLimit = n > 0
		if n > 0 {
			cfg.Security.MaxLoginAttempts = n
		}
	}

	if raw := strings.TrimSpace(os.Getenv("OTP_MAX_ATTEMPTS")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: OTP_MAX_ATTEMPTS must be an integer", ErrConfig)
		}
		cfg.OTP.MaxAttempts = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return cfg, nil
}
