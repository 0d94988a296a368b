// Package config handles process configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// DefaultConnectAttempts is the readiness budget when nothing else is set,
// one attempt per second for ten minutes.
const DefaultConnectAttempts = 600

// Config holds settings read from the environment. Command-line flags take
// precedence over every field.
type Config struct {
	SonarURL        string  // SONAR_URL
	AdminPassword   *string // ADMIN_PASSWORD; nil when unset
	LogLevel        string  // debug, info, warn, error (default "info")
	LogFormat       string  // text or json (default "text")
	ConnectAttempts int     // SONAR_CONNECT_ATTEMPTS (default 600)
	RateLimit       float64 // SONAR_RATE_LIMIT requests per second, 0 = unlimited

	// Warnings collects non-fatal problems found while loading. They are
	// logged by the caller once the logger exists.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	return ParseLevel(c.LogLevel)
}

// ParseLevel maps a level name to an slog.Level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// JSONLogs reports whether logs should be written as JSON.
func (c *Config) JSONLogs() bool {
	return strings.EqualFold(c.LogFormat, "json")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		SonarURL:  strings.TrimSpace(os.Getenv("SONAR_URL")),
		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: os.Getenv("LOG_FORMAT"),
	}
	if v, ok := os.LookupEnv("ADMIN_PASSWORD"); ok {
		cfg.AdminPassword = &v
	}

	if v := os.Getenv("SONAR_CONNECT_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		switch {
		case err != nil:
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("SONAR_CONNECT_ATTEMPTS=%q is not a number, ignored", v))
		case n < 1:
			return nil, fmt.Errorf("SONAR_CONNECT_ATTEMPTS must be at least 1, got %d", n)
		default:
			cfg.ConnectAttempts = n
		}
	}
	if v := os.Getenv("SONAR_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		switch {
		case err != nil:
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("SONAR_RATE_LIMIT=%q is not a number, ignored", v))
		case f < 0:
			return nil, fmt.Errorf("SONAR_RATE_LIMIT must not be negative, got %g", f)
		default:
			cfg.RateLimit = f
		}
	}

	// Defaults
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("LOG_FORMAT=%q is not supported, using text", cfg.LogFormat))
		cfg.LogFormat = "text"
	}
	if cfg.ConnectAttempts == 0 {
		cfg.ConnectAttempts = DefaultConnectAttempts
	}

	return cfg, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("setenv %s: %w", key, err)
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
