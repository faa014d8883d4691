// Package config defines the application configuration: YAML file with
// defaults, environment variable overrides and validation.
package config

import (
	"fmt"
	"time"
)

// Config is the top-level application configuration.
type Config struct {
	RaiderIO     RaiderIOConfig  `yaml:"raider_io"`
	RateLimiting RateLimitConfig `yaml:"rate_limiting"`
	Pipeline     PipelineConfig  `yaml:"pipeline"`
	Database     DatabaseConfig  `yaml:"database"`
	Cache        CacheConfig     `yaml:"cache"`
	Logging      LoggingConfig   `yaml:"logging"`
	Metrics      MetricsConfig   `yaml:"metrics"`
}

// RaiderIOConfig configures the upstream API client.
type RaiderIOConfig struct {
	// APIKey enables authenticated access. Optional; anonymous requests
	// work with lower rate limits.
	APIKey string `yaml:"api_key"`

	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`

	// Raid is the raid slug progression and rankings are read for.
	Raid string `yaml:"raid"`

	// Region is the default region for roster entries added without one.
	Region string `yaml:"region"`
}

// RateLimitConfig bounds outbound traffic to the upstream API.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate. Zero or negative
	// disables rate limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// ConcurrentRequests caps simultaneous in-flight requests.
	ConcurrentRequests int `yaml:"concurrent_requests"`

	// RetryAttempts is the number of retries after the initial attempt.
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryDelay is the initial backoff between retries.
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// PipelineConfig bounds a whole aggregation run.
type PipelineConfig struct {
	// Deadline is the overall time budget for one run.
	Deadline time.Duration `yaml:"deadline"`
}

// DatabaseConfig configures the roster store.
type DatabaseConfig struct {
	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

// CacheConfig configures the optional Redis profile cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Addr    string        `yaml:"addr"`
	DB      int           `yaml:"db"`
	TTL     time.Duration `yaml:"ttl"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "json" or "console".
	Format string `yaml:"format"`
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// validRegions are the regions the upstream API serves.
var validRegions = map[string]bool{
	"us": true,
	"eu": true,
	"kr": true,
	"tw": true,
	"cn": true,
}

// ApplyDefaults fills in zero values with production defaults. Load does not
// call it on file input: it builds the baseline with Default and unmarshals
// the file over it, so an explicit zero in the file is preserved (zero
// requests_per_second means unthrottled, not unset).
func ApplyDefaults(cfg *Config) {
	if cfg.RaiderIO.BaseURL == "" {
		cfg.RaiderIO.BaseURL = "https://raider.io/api/v1"
	}
	if cfg.RaiderIO.UserAgent == "" {
		cfg.RaiderIO.UserAgent = "guild-status/1.0"
	}
	if cfg.RaiderIO.Timeout == 0 {
		cfg.RaiderIO.Timeout = 15 * time.Second
	}
	if cfg.RaiderIO.Region == "" {
		cfg.RaiderIO.Region = "eu"
	}

	if cfg.RateLimiting.RequestsPerSecond == 0 {
		cfg.RateLimiting.RequestsPerSecond = 50
	}
	if cfg.RateLimiting.ConcurrentRequests == 0 {
		cfg.RateLimiting.ConcurrentRequests = 25
	}
	if cfg.RateLimiting.RetryAttempts == 0 {
		cfg.RateLimiting.RetryAttempts = 2
	}
	if cfg.RateLimiting.RetryDelay == 0 {
		cfg.RateLimiting.RetryDelay = 500 * time.Millisecond
	}

	if cfg.Pipeline.Deadline == 0 {
		cfg.Pipeline.Deadline = 30 * time.Second
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "guild-status.db"
	}

	if cfg.Cache.Addr == "" {
		cfg.Cache.Addr = "localhost:6379"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 10 * time.Minute
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
}

// Validate checks the configuration for values the pipeline cannot run
// with. Call after ApplyDefaults.
func Validate(cfg *Config) error {
	if cfg.RaiderIO.Raid == "" {
		return fmt.Errorf("raider_io.raid is required")
	}
	if !validRegions[cfg.RaiderIO.Region] {
		return fmt.Errorf("raider_io.region %q is not a valid region", cfg.RaiderIO.Region)
	}
	if cfg.RaiderIO.Timeout <= 0 {
		return fmt.Errorf("raider_io.timeout must be positive")
	}

	if cfg.RateLimiting.ConcurrentRequests < 1 {
		return fmt.Errorf("rate_limiting.concurrent_requests must be at least 1")
	}
	if cfg.RateLimiting.RetryAttempts < 0 {
		return fmt.Errorf("rate_limiting.retry_attempts must not be negative")
	}

	if cfg.Pipeline.Deadline <= 0 {
		return fmt.Errorf("pipeline.deadline must be positive")
	}

	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if cfg.Cache.Enabled && cfg.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when the cache is enabled")
	}

	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", cfg.Logging.Format)
	}

	return nil
}
