// Package config holds the patrimoine server settings: defaults, an
// optional YAML file and PATRIMOINE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds configuration for the patrimoine web front end.
type ServerConfig struct {
	Addr          string        `yaml:"addr"`           // Listen address (default ":8080")
	LogLevel      string        `yaml:"log_level"`      // Log level: debug, info, warn, error
	LogFormat     string        `yaml:"log_format"`     // Log format: text, json
	DBPath        string        `yaml:"db_path"`        // SQLite credential store (":memory:" for testing)
	APIURL        string        `yaml:"api_url"`        // Root of the catalogue REST API
	APITimeout    time.Duration `yaml:"api_timeout"`    // Per-request timeout towards the API
	PollInterval  time.Duration `yaml:"poll_interval"`  // Admin moderation-queue refresh interval
	IdleTTL       time.Duration `yaml:"idle_ttl"`       // Evict controllers idle for longer than this
	CredentialTTL time.Duration `yaml:"credential_ttl"` // Prune stored credentials older than this
	MaxClients    int           `yaml:"max_clients"`    // Live controllers kept before the least recent is evicted
	SecureCookies bool          `yaml:"secure_cookies"` // Set the Secure flag on cookies
	DefaultLang   string        `yaml:"default_lang"`   // Fallback UI language
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:          ":8080",
		LogLevel:      "info",
		LogFormat:     "text",
		DBPath:        "patrimoine.db",
		APIURL:        "http://localhost:3000/api",
		APITimeout:    15 * time.Second,
		PollInterval:  time.Minute,
		IdleTTL:       2 * time.Hour,
		CredentialTTL: 30 * 24 * time.Hour,
		MaxClients:    10000,
		DefaultLang:   "fr",
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped
// when path is empty) and then with environment overrides.
func Load(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c ServerConfig) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.APIURL == "" {
		errs = append(errs, errors.New("api_url is required"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.MaxClients < 0 {
		errs = append(errs, fmt.Errorf("max_clients must not be negative, got %d", c.MaxClients))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, fmt.Errorf("api_timeout must be positive, got %s", c.APITimeout))
	}
	return errors.Join(errs...)
}

func applyEnv(cfg *ServerConfig) {
	cfg.Addr = envString("PATRIMOINE_ADDR", cfg.Addr)
	cfg.LogLevel = envString("PATRIMOINE_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envString("PATRIMOINE_LOG_FORMAT", cfg.LogFormat)
	cfg.DBPath = envString("PATRIMOINE_DB", cfg.DBPath)
	cfg.APIURL = envString("PATRIMOINE_API_URL", cfg.APIURL)
	cfg.APITimeout = envDuration("PATRIMOINE_API_TIMEOUT", cfg.APITimeout)
	cfg.PollInterval = envDuration("PATRIMOINE_POLL_INTERVAL", cfg.PollInterval)
	cfg.IdleTTL = envDuration("PATRIMOINE_IDLE_TTL", cfg.IdleTTL)
	cfg.CredentialTTL = envDuration("PATRIMOINE_CREDENTIAL_TTL", cfg.CredentialTTL)
	cfg.MaxClients = envInt("PATRIMOINE_MAX_CLIENTS", cfg.MaxClients)
	cfg.SecureCookies = envBool("PATRIMOINE_SECURE_COOKIES", cfg.SecureCookies)
	cfg.DefaultLang = envString("PATRIMOINE_LANG", cfg.DefaultLang)
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}
