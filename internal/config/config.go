// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Credential encryption: 64 hex characters (32 bytes). When empty,
	// credentials are stored in cleartext; development only.
	CredentialsKey string `env:"CREDENTIALS_KEY" json:"-"` // Masked in JSON

	// Persistence settings. An empty DATABASE_URL selects the in-memory
	// provider store.
	DatabaseURL string `env:"DATABASE_URL" json:"-"` // Masked in JSON

	// Job index settings. An empty REDIS_ADDR selects the in-process index.
	RedisAddr     string        `env:"REDIS_ADDR" json:"redis_addr,omitempty"`
	RedisPassword string        `env:"REDIS_PASSWORD" json:"-"` // Masked in JSON
	RedisDB       int           `env:"REDIS_DB, default=0" json:"redis_db"`
	JobIndexTTL   time.Duration `env:"JOB_INDEX_TTL, default=24h" json:"job_index_ttl"`

	// Orchestration settings
	Strategy        string        `env:"ORCH_STRATEGY, default=priority" json:"strategy"`
	MaxRetries      int           `env:"ORCH_MAX_RETRIES, default=3" json:"max_retries"`
	RetryDelay      time.Duration `env:"ORCH_RETRY_DELAY, default=2s" json:"retry_delay"`
	FailoverEnabled bool          `env:"ORCH_FAILOVER, default=true" json:"failover_enabled"`

	// Video archival settings. Leave ARCHIVE_DIR and S3_BUCKET empty to
	// disable archival entirely.
	ArchiveDir     string `env:"ARCHIVE_DIR" json:"archive_dir,omitempty"`
	ArchiveBaseURL string `env:"ARCHIVE_BASE_URL" json:"archive_base_url,omitempty"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// PostgresEnabled returns true if a database URL is configured.
func (c *Config) PostgresEnabled() bool {
	return c.DatabaseURL != ""
}

// RedisEnabled returns true if a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// S3Enabled returns true if S3 archival is configured.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// ArchiveEnabled returns true if some archival back end is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Enabled() || c.ArchiveDir != ""
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive
// values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, Strategy: %s, MaxRetries: %d, RetryDelay: %s, FailoverEnabled: %t, Postgres: %t, Redis: %t, ArchiveDir: %s, S3Bucket: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.Strategy,
		c.MaxRetries,
		c.RetryDelay,
		c.FailoverEnabled,
		c.PostgresEnabled(),
		c.RedisEnabled(),
		c.ArchiveDir,
		c.S3Bucket,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
