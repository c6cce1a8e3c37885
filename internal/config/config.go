// Package config loads runtime settings from the environment.
//
// Values come from process environment variables, optionally seeded from a
// .env file. Existing environment variables always win over .env entries.
// Command-line flags are applied by the CLI on top of the loaded Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"portfolioos/internal/notify"
	"portfolioos/internal/ratelimit"
	"portfolioos/internal/security"
)

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8080
)

// Config holds every runtime setting. It is built once at startup and read
// only afterwards.
type Config struct {
	Host string
	Port int

	TelegramToken  string
	TelegramChatID string
	TelegramAPIURL string
	WebhookSecret  string
	AdminIDs       []string

	OTelEnabled bool

	RateLimitPerMinute  int
	RateLimitMaxClients int
	TrustProxyHeaders   bool

	CatalogFile string

	LogLevel string
	LogFile  string
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads envFile when it exists, then builds a Config from the process
// environment. An empty envFile skips the .env step.
func Load(envFile string) (*Config, error) {
	if err := LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	return FromLookup(os.LookupEnv)
}

// LoadEnvFile seeds the process environment from envFile without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(envFile string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	return nil
}

// FromLookup builds a Config from lookup without validating cross-field
// rules. Malformed numbers are reported immediately.
func FromLookup(lookup LookupFunc) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		Host:              get("HOST", DefaultHost),
		TelegramToken:     get("TELEGRAM_TOKEN", ""),
		TelegramChatID:    get("TELEGRAM_CHAT_ID", ""),
		TelegramAPIURL:    get("TELEGRAM_API_URL", notify.DefaultAPIURL),
		WebhookSecret:     get("TELEGRAM_WEBHOOK_SECRET", ""),
		AdminIDs:          SplitList(get("ADMIN_IDS", "")),
		OTelEnabled:       parseBool(get("OTEL_ENABLED", "")),
		TrustProxyHeaders: parseBool(get("TRUST_PROXY_HEADERS", "")),
		CatalogFile:       get("CATALOG_FILE", ""),
		LogLevel:          strings.ToLower(get("LOG_LEVEL", "info")),
		LogFile:           get("LOG_FILE", ""),
	}

	var err error
	if cfg.Port, err = parseInt("PORT", get("PORT", ""), DefaultPort); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = parseInt("RATE_LIMIT_PER_MINUTE", get("RATE_LIMIT_PER_MINUTE", ""), ratelimit.DefaultThreshold); err != nil {
		return nil, err
	}
	if cfg.RateLimitMaxClients, err = parseInt("RATE_LIMIT_MAX_CLIENTS", get("RATE_LIMIT_MAX_CLIENTS", ""), ratelimit.DefaultMaxKeys); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("  - PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.Host == "" {
		errs = append(errs, "  - HOST cannot be empty")
	}
	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("  - RATE_LIMIT_PER_MINUTE must be at least 1, got %d", c.RateLimitPerMinute))
	}
	if c.RateLimitMaxClients < 1 {
		errs = append(errs, fmt.Sprintf("  - RATE_LIMIT_MAX_CLIENTS must be at least 1, got %d", c.RateLimitMaxClients))
	}

	if c.TelegramToken != "" {
		if err := security.ValidateBotToken(c.TelegramToken); err != nil {
			errs = append(errs, fmt.Sprintf("  - TELEGRAM_TOKEN: %v", err))
		}
	}
	if err := security.ValidateHTTPURL(c.TelegramAPIURL); err != nil {
		errs = append(errs, fmt.Sprintf("  - TELEGRAM_API_URL: %v", err))
	}

	if c.WebhookSecret != "" {
		if err := security.ValidateSecret(c.WebhookSecret); err != nil {
			errs = append(errs, fmt.Sprintf("  - TELEGRAM_WEBHOOK_SECRET: %v", err))
		}
		if c.TelegramToken == "" {
			errs = append(errs, "  - TELEGRAM_WEBHOOK_SECRET requires TELEGRAM_TOKEN")
		}
	}

	for _, id := range c.AdminIDs {
		if err := security.ValidateAdminID(id); err != nil {
			errs = append(errs, fmt.Sprintf("  - ADMIN_IDS: %v", err))
		}
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Sprintf("  - LOG_LEVEL: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NotificationsEnabled reports whether contact submissions are forwarded.
func (c *Config) NotificationsEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

// WebhookEnabled reports whether the bot webhook route is served.
func (c *Config) WebhookEnabled() bool {
	return c.WebhookSecret != "" && c.TelegramToken != ""
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", name)
	}
}

// SplitList splits a comma separated value, trimming entries and dropping
// empty ones.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseInt(key, value string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", key, value)
	}
	return n, nil
}
