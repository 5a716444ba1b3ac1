package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every configuration override variable.
const EnvPrefix = "ANISTREAM_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention ANISTREAM_SECTION_FIELD (e.g., ANISTREAM_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// A missing file is not an error: the service runs on defaults plus
// environment overrides, which is how most edge deployments configure it.
//
// The loading sequence is:
// 1. Load YAML from file (if present)
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		cfg, err = parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	case os.IsNotExist(err):
		cfg = NewDefaultConfig()
	default:
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// parse decodes YAML on top of the base config and applies defaults.
func parse(data []byte) (*Config, error) {
	cfg := newBaseConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	setString(&cfg.Server.ListenAddress, "SERVER_LISTEN_ADDRESS")
	setDuration(&cfg.Server.ReadTimeout, "SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT")
	setDuration(&cfg.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT")
	setInt(&cfg.Server.MaxHeaderBytes, "SERVER_MAX_HEADER_BYTES")
	setBool(&cfg.Server.CORS.Enabled, "SERVER_CORS_ENABLED")
	setBool(&cfg.Server.TLS.Enabled, "SERVER_TLS_ENABLED")
	setString(&cfg.Server.TLS.CertFile, "SERVER_TLS_CERT_FILE")
	setString(&cfg.Server.TLS.KeyFile, "SERVER_TLS_KEY_FILE")

	// Routing and upstream overrides
	setString(&cfg.Routing.APIPrefix, "ROUTING_API_PREFIX")
	setString(&cfg.Upstream.BaseURL, "UPSTREAM_BASE_URL")
	setString(&cfg.Upstream.SecretName, "UPSTREAM_SECRET_NAME")
	setDuration(&cfg.Upstream.Timeout, "UPSTREAM_TIMEOUT")

	// Assets overrides
	setString(&cfg.Assets.Backend, "ASSETS_BACKEND")
	setString(&cfg.Assets.Dir, "ASSETS_DIR")
	setString(&cfg.Assets.OriginURL, "ASSETS_ORIGIN_URL")

	// Cache overrides
	setBool(&cfg.Cache.Enabled, "CACHE_ENABLED")
	setString(&cfg.Cache.Backend, "CACHE_BACKEND")
	setInt(&cfg.Cache.Memory.MaxEntries, "CACHE_MEMORY_MAX_ENTRIES")
	setString(&cfg.Cache.SQLite.Path, "CACHE_SQLITE_PATH")
	setString(&cfg.Cache.SQLite.Driver, "CACHE_SQLITE_DRIVER")
	setString(&cfg.Cache.PruneSchedule, "CACHE_PRUNE_SCHEDULE")

	// Telemetry overrides
	setString(&cfg.Telemetry.Logging.Level, "TELEMETRY_LOGGING_LEVEL")
	setString(&cfg.Telemetry.Logging.Format, "TELEMETRY_LOGGING_FORMAT")
	setBool(&cfg.Telemetry.Metrics.Enabled, "TELEMETRY_METRICS_ENABLED")
	setString(&cfg.Telemetry.Metrics.Path, "TELEMETRY_METRICS_PATH")
	setBool(&cfg.Telemetry.Tracing.Enabled, "TELEMETRY_TRACING_ENABLED")
	setString(&cfg.Telemetry.Tracing.Endpoint, "TELEMETRY_TRACING_ENDPOINT")
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func setString(dst *string, name string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func setBool(dst *bool, name string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, name string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setDuration(dst *time.Duration, name string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
