package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default returns the configuration with all defaults applied and no file
// input. The result still needs a raid slug before it validates.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Load reads configuration from a YAML file, applies environment variable
// overrides and validates the result. The file is unmarshalled over the
// defaults, so keys absent from the file keep their default while explicit
// values survive as written: requests_per_second set to 0 disables rate
// limiting instead of falling back to the default rate.
//
// Environment variables follow the naming convention GUILDSTATUS_SECTION_FIELD
// (e.g. GUILDSTATUS_RAIDERIO_API_KEY) and always take precedence over the
// file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("GUILDSTATUS_RAIDERIO_API_KEY"); val != "" {
		cfg.RaiderIO.APIKey = val
	}
	if val := os.Getenv("GUILDSTATUS_RAIDERIO_BASE_URL"); val != "" {
		cfg.RaiderIO.BaseURL = val
	}
	if val := os.Getenv("GUILDSTATUS_RAIDERIO_RAID"); val != "" {
		cfg.RaiderIO.Raid = val
	}
	if val := os.Getenv("GUILDSTATUS_RAIDERIO_REGION"); val != "" {
		cfg.RaiderIO.Region = val
	}
	if val := os.Getenv("GUILDSTATUS_RAIDERIO_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.RaiderIO.Timeout = d
		}
	}

	if val := os.Getenv("GUILDSTATUS_RATELIMIT_REQUESTS_PER_SECOND"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.RateLimiting.RequestsPerSecond = f
		}
	}
	if val := os.Getenv("GUILDSTATUS_RATELIMIT_CONCURRENT_REQUESTS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.RateLimiting.ConcurrentRequests = i
		}
	}
	if val := os.Getenv("GUILDSTATUS_RATELIMIT_RETRY_ATTEMPTS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.RateLimiting.RetryAttempts = i
		}
	}

	if val := os.Getenv("GUILDSTATUS_PIPELINE_DEADLINE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Pipeline.Deadline = d
		}
	}

	if val := os.Getenv("GUILDSTATUS_DATABASE_PATH"); val != "" {
		cfg.Database.Path = val
	}

	if val := os.Getenv("GUILDSTATUS_CACHE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Cache.Enabled = b
		}
	}
	if val := os.Getenv("GUILDSTATUS_CACHE_ADDR"); val != "" {
		cfg.Cache.Addr = val
	}

	if val := os.Getenv("GUILDSTATUS_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("GUILDSTATUS_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}

	if val := os.Getenv("GUILDSTATUS_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("GUILDSTATUS_METRICS_ADDR"); val != "" {
		cfg.Metrics.Addr = val
	}
}
