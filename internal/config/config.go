// Package config loads scraperd settings from an optional YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for scraperd.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP server port
	HTTPPort int

	// Directory export files are written to, listed from and deleted from.
	ExportDir string

	// Bearer token clients must present. Empty disables auth.
	APIToken string

	// OTLP gRPC collector address. Empty disables tracing.
	OTELEndpoint string

	// Fraction of root spans sampled, 0 to 1.
	TraceSampleRatio float64

	// Global command rate limit (requests/second) and burst.
	RateLimit      float64
	RateLimitBurst int

	// Per-request scrape timeout and default User-Agent.
	ScrapeTimeout time.Duration
	UserAgent     string

	// How often the scheduler re-reads active jobs from the database.
	ResyncInterval time.Duration

	// Log level: debug, info, warn, error.
	LogLevel string
}

// env names for each key. Keys not listed here are only read from the file.
var envKeys = map[string]string{
	"database_url":       "DATABASE_URL",
	"port":               "PORT",
	"export_dir":         "EXPORT_DIR",
	"api_token":          "SCRAPEDESK_API_TOKEN",
	"otel_endpoint":      "OTEL_EXPORTER_OTLP_ENDPOINT",
	"trace_sample_ratio": "OTEL_TRACES_SAMPLER_ARG",
	"rate_limit":         "RATE_LIMIT",
	"rate_limit_burst":   "RATE_LIMIT_BURST",
	"scrape_timeout":     "SCRAPE_TIMEOUT",
	"user_agent":         "SCRAPE_USER_AGENT",
	"resync_interval":    "RESYNC_INTERVAL",
	"log_level":          "LOG_LEVEL",
}

// DefaultExportDir is ~/scrapedesk_exports, or a relative directory when
// the home directory cannot be resolved.
func DefaultExportDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "scrapedesk_exports"
	}
	return filepath.Join(home, "scrapedesk_exports")
}

// Load reads configuration from path (if non-empty) and the environment.
// Environment variables win over the file.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("port", 6262)
	v.SetDefault("export_dir", DefaultExportDir())
	v.SetDefault("otel_endpoint", "localhost:4317")
	v.SetDefault("trace_sample_ratio", 1.0)
	v.SetDefault("rate_limit", 20.0)
	v.SetDefault("rate_limit_burst", 40)
	v.SetDefault("scrape_timeout", 30*time.Second)
	v.SetDefault("user_agent", "scrapedesk/1.0")
	v.SetDefault("resync_interval", 5*time.Minute)
	v.SetDefault("log_level", "info")

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		DatabaseURL:      v.GetString("database_url"),
		HTTPPort:         v.GetInt("port"),
		ExportDir:        v.GetString("export_dir"),
		APIToken:         v.GetString("api_token"),
		OTELEndpoint:     v.GetString("otel_endpoint"),
		TraceSampleRatio: v.GetFloat64("trace_sample_ratio"),
		RateLimit:        v.GetFloat64("rate_limit"),
		RateLimitBurst:   v.GetInt("rate_limit_burst"),
		ScrapeTimeout:    v.GetDuration("scrape_timeout"),
		UserAgent:        v.GetString("user_agent"),
		ResyncInterval:   v.GetDuration("resync_interval"),
		LogLevel:         v.GetString("log_level"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required (env: DATABASE_URL)")
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("trace_sample_ratio must be between 0 and 1, got %g", c.TraceSampleRatio)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid port %d", c.HTTPPort)
	}
	if c.ExportDir == "" {
		return fmt.Errorf("export_dir must not be empty")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be positive, got %v", c.RateLimit)
	}
	if c.RateLimitBurst < 1 {
		return fmt.Errorf("rate_limit_burst must be at least 1, got %d", c.RateLimitBurst)
	}
	if c.ScrapeTimeout <= 0 {
		return fmt.Errorf("scrape_timeout must be positive, got %v", c.ScrapeTimeout)
	}
	if c.ResyncInterval <= 0 {
		return fmt.Errorf("resync_interval must be positive, got %v", c.ResyncInterval)
	}
	return nil
}
