package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/saraha-app/sessionkit"
)

// settings holds process-level options that are not part of the Engine
// configuration.
type settings struct {
	Addr            string
	LogLevel        string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	DatabaseURL     string
	SecureCookies   bool
	TrustProxy      bool
	ShutdownTimeout time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// loadSettings reads .env (when present) and then the process environment.
func loadSettings() (settings, sessionkit.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return settings{}, sessionkit.Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := sessionkit.LoadConfigFromEnv()
	if err != nil {
		return settings{}, sessionkit.Config{}, err
	}

	s := settings{
		Addr:            envString("HTTP_ADDR", ":8080"),
		LogLevel:        envString("LOG_LEVEL", "info"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SMTPHost:        os.Getenv("SMTP_HOST"),
		SMTPUsername:    os.Getenv("SMTP_USERNAME"),
		SMTPPassword:    os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:        os.Getenv("SMTP_FROM"),
		ShutdownTimeout: 10 * time.Second,
	}

	if s.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return settings{}, sessionkit.Config{}, err
	}
	if s.SMTPPort, err = envInt("SMTP_PORT", 587); err != nil {
		return settings{}, sessionkit.Config{}, err
	}
	if s.SecureCookies, err = envBool("COOKIE_SECURE", true); err != nil {
		return settings{}, sessionkit.Config{}, err
	}
	if s.TrustProxy, err = envBool("TRUST_PROXY", false); err != nil {
		return settings{}, sessionkit.Config{}, err
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		if s.ShutdownTimeout, err = time.ParseDuration(v); err != nil {
			return settings{}, sessionkit.Config{}, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
	}

	if s.RedisAddr == "" && s.DatabaseURL == "" {
		return settings{}, sessionkit.Config{}, errors.New("one of REDIS_ADDR or DATABASE_URL is required")
	}
	return s, cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
