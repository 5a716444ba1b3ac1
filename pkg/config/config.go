package config

import "time"

// Config is the root configuration structure for the anistream edge service.
// It contains the HTTP server, request routing, upstream API, static asset,
// edge cache, secret store and telemetry settings.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and CORS.
	Server ServerConfig `yaml:"server"`

	// Routing controls how inbound paths are split between the API proxy
	// and the static asset provider.
	Routing RoutingConfig `yaml:"routing"`

	// Upstream describes the third-party metadata API that /api/ requests
	// are forwarded to.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Assets describes where the static site is served from.
	Assets AssetsConfig `yaml:"assets"`

	// Cache contains configuration for the shared edge cache.
	Cache CacheConfig `yaml:"cache"`

	// Secrets contains the secret store bindings used to resolve the
	// upstream bearer credential.
	Secrets SecretsConfig `yaml:"secrets"`

	// Telemetry contains configuration for logging, metrics, tracing and
	// health checks.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown, including draining pending
	// cache writes.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`

	// TLS configures HTTPS termination. Usually off: the edge normally sits
	// behind a CDN or load balancer that terminates TLS.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig configures HTTPS termination.
type TLSConfig struct {
	// Enabled serves HTTPS instead of HTTP.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the PEM certificate chain.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the PEM private key.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the lowest protocol version accepted.
	// Options: "1.2", "1.3"
	// Default: "1.2"
	MinVersion string `yaml:"min_version"`
}

// CORSConfig contains CORS configuration. The site and its API share an
// origin, so CORS is disabled unless the API is consumed cross-origin.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins lists allowed origins. "*" allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods lists methods allowed in preflight responses.
	// Default: ["GET", "HEAD", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders lists request headers allowed in preflight responses.
	// Default: ["Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache duration in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// RoutingConfig controls request dispatch.
type RoutingConfig struct {
	// APIPrefix is the reserved path prefix. Requests whose path starts with
	// it are proxied upstream; everything else is static.
	// Must start and end with "/".
	// Default: "/api/"
	APIPrefix string `yaml:"api_prefix"`
}

// UpstreamConfig describes the upstream metadata API.
type UpstreamConfig struct {
	// BaseURL is the root of the upstream API. The stripped request path and
	// query string are appended to it.
	// Default: "https://api.themoviedb.org/3"
	BaseURL string `yaml:"base_url"`

	// SecretName is the name of the bearer credential in the secret store.
	// With the env provider and no prefix it is read from TMDB_API_KEY.
	// Default: "tmdb-api-key"
	SecretName string `yaml:"secret_name"`

	// Timeout bounds a single upstream call. Zero leaves the call bounded
	// only by the transport defaults.
	// Default: 0
	Timeout time.Duration `yaml:"timeout"`

	// MaxIdleConns is the idle connection pool size of the upstream client.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`
}

// AssetsConfig describes the static asset provider binding.
type AssetsConfig struct {
	// Backend selects the provider.
	// Options: "dir" (local build directory), "origin" (remote HTTP origin),
	// "none" (unconfigured; static requests fail with 500).
	// Default: "dir"
	Backend string `yaml:"backend"`

	// Dir is the build directory served when Backend is "dir".
	// Default: "./dist"
	Dir string `yaml:"dir"`

	// OriginURL is the remote origin used when Backend is "origin".
	OriginURL string `yaml:"origin_url"`

	// Index is the document served for directory paths.
	// Default: "index.html"
	Index string `yaml:"index"`
}

// CacheConfig contains edge cache configuration.
type CacheConfig struct {
	// Enabled controls whether upstream responses are cached at all.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the store.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Memory contains in-memory store settings.
	Memory MemoryCacheConfig `yaml:"memory"`

	// SQLite contains persistent store settings.
	SQLite SQLiteCacheConfig `yaml:"sqlite"`

	// PruneSchedule is a cron expression for purging already expired
	// entries. Empty disables the pruner.
	// Default: "*/15 * * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// MemoryCacheConfig configures the in-memory cache store.
type MemoryCacheConfig struct {
	// MaxEntries bounds the number of stored responses.
	// Default: 10000
	MaxEntries int `yaml:"max_entries"`
}

// SQLiteCacheConfig configures the SQLite cache store.
type SQLiteCacheConfig struct {
	// Path is the database file.
	// Default: "data/cache.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (modernc.org/sqlite, pure Go),
	// "sqlite3" (github.com/mattn/go-sqlite3, cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// MaxOpenConns bounds the connection pool.
	// Default: 1
	MaxOpenConns int `yaml:"max_open_conns"`
}

// SecretsConfig configures the secret store.
type SecretsConfig struct {
	// Providers are consulted in order; the first one that returns a value
	// wins.
	// Default: [{type: env}]
	Providers []SecretProviderConfig `yaml:"providers"`

	// Cache controls in-process caching of resolved secrets.
	Cache SecretCacheConfig `yaml:"cache"`
}

// SecretProviderConfig configures one secret provider.
type SecretProviderConfig struct {
	// Type is the provider kind.
	// Options: "env", "file"
	Type string `yaml:"type"`

	// Prefix is prepended to environment variable names (env only).
	Prefix string `yaml:"prefix"`

	// Path is the directory holding one file per secret (file only).
	Path string `yaml:"path"`

	// Watch enables reloading on file changes (file only).
	Watch bool `yaml:"watch"`
}

// SecretCacheConfig configures the resolved secret cache.
type SecretCacheConfig struct {
	// Enabled controls whether resolved secrets are cached.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// TTL is how long a resolved secret is reused.
	// Default: 5m
	TTL time.Duration `yaml:"ttl"`

	// MaxSize bounds the number of cached secrets.
	// Default: 16
	MaxSize int `yaml:"max_size"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "anistream"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "edge"
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for request duration (seconds).
	// Default: [0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "anistream-edge"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	// CheckTimeout bounds each readiness check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
