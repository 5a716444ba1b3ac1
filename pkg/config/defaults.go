package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// CORS defaults
	DefaultCORSEnabled = false
	DefaultCORSMaxAge  = 3600

	DefaultTLSMinVersion = "1.2"

	// Routing defaults
	DefaultAPIPrefix = "/api/"

	// Upstream defaults
	DefaultUpstreamBaseURL      = "https://api.themoviedb.org/3"
	DefaultUpstreamSecretName   = "tmdb-api-key"
	DefaultUpstreamMaxIdleConns = 100

	// Assets defaults
	DefaultAssetsBackend = "dir"
	DefaultAssetsDir     = "./dist"
	DefaultAssetsIndex   = "index.html"

	// Cache defaults
	DefaultCacheEnabled           = true
	DefaultCacheBackend           = "memory"
	DefaultCacheMemoryMaxEntries  = 10000
	DefaultCacheSQLitePath        = "data/cache.db"
	DefaultCacheSQLiteDriver      = "sqlite"
	DefaultCacheSQLiteBusyTimeout = 5 * time.Second
	DefaultCacheSQLiteMaxOpen     = 1
	DefaultCachePruneSchedule     = "*/15 * * * *"

	// Secrets defaults
	DefaultSecretProviderType = "env"
	DefaultSecretCacheEnabled = true
	DefaultSecretCacheTTL     = 5 * time.Minute
	DefaultSecretCacheMaxSize = 16

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "anistream"
	DefaultMetricsSubsystem   = "edge"
	DefaultTracingEnabled     = false
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingService     = "anistream-edge"
	DefaultOTLPTimeout        = 10 * time.Second
	DefaultHealthCheckTimeout = 5 * time.Second
)

// DefaultRequestDurationBuckets are histogram buckets tuned for an edge
// that mostly answers from cache or a single upstream hop.
var DefaultRequestDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// newBaseConfig returns a Config with the boolean fields that default to
// true already set. YAML decoding into it keeps those values unless the
// file sets them explicitly, which distinguishes "unset" from "false".
func newBaseConfig() *Config {
	cfg := &Config{}
	cfg.Cache.Enabled = DefaultCacheEnabled
	cfg.Secrets.Cache.Enabled = DefaultSecretCacheEnabled
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	return cfg
}

// NewDefaultConfig returns a fully defaulted configuration. It is used when
// no configuration file exists and by tests.
func NewDefaultConfig() *Config {
	cfg := newBaseConfig()
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)

	if cfg.Routing.APIPrefix == "" {
		cfg.Routing.APIPrefix = DefaultAPIPrefix
	}

	// Upstream defaults
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = DefaultUpstreamBaseURL
	}
	if cfg.Upstream.SecretName == "" {
		cfg.Upstream.SecretName = DefaultUpstreamSecretName
	}
	if cfg.Upstream.MaxIdleConns == 0 {
		cfg.Upstream.MaxIdleConns = DefaultUpstreamMaxIdleConns
	}

	// Assets defaults
	if cfg.Assets.Backend == "" {
		cfg.Assets.Backend = DefaultAssetsBackend
	}
	if cfg.Assets.Dir == "" {
		cfg.Assets.Dir = DefaultAssetsDir
	}
	if cfg.Assets.Index == "" {
		cfg.Assets.Index = DefaultAssetsIndex
	}

	applyCacheDefaults(&cfg.Cache)
	applySecretsDefaults(&cfg.Secrets)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// CORS lists only matter when enabled
	if len(s.CORS.AllowedMethods) == 0 {
		s.CORS.AllowedMethods = []string{"GET", "HEAD", "OPTIONS"}
	}
	if len(s.CORS.AllowedHeaders) == 0 {
		s.CORS.AllowedHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if s.CORS.MaxAge == 0 {
		s.CORS.MaxAge = DefaultCORSMaxAge
	}

	if s.TLS.MinVersion == "" {
		s.TLS.MinVersion = DefaultTLSMinVersion
	}
}

func applyCacheDefaults(c *CacheConfig) {
	if c.Backend == "" {
		c.Backend = DefaultCacheBackend
	}
	if c.Memory.MaxEntries == 0 {
		c.Memory.MaxEntries = DefaultCacheMemoryMaxEntries
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = DefaultCacheSQLitePath
	}
	if c.SQLite.Driver == "" {
		c.SQLite.Driver = DefaultCacheSQLiteDriver
	}
	if c.SQLite.BusyTimeout == 0 {
		c.SQLite.BusyTimeout = DefaultCacheSQLiteBusyTimeout
	}
	if c.SQLite.MaxOpenConns == 0 {
		c.SQLite.MaxOpenConns = DefaultCacheSQLiteMaxOpen
	}
	if c.PruneSchedule == "" {
		c.PruneSchedule = DefaultCachePruneSchedule
	}
}

func applySecretsDefaults(s *SecretsConfig) {
	if len(s.Providers) == 0 {
		s.Providers = []SecretProviderConfig{{Type: DefaultSecretProviderType}}
	}
	if s.Cache.TTL == 0 {
		s.Cache.TTL = DefaultSecretCacheTTL
	}
	if s.Cache.MaxSize == 0 {
		s.Cache.MaxSize = DefaultSecretCacheMaxSize
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}

	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.RequestDurationBuckets) == 0 {
		t.Metrics.RequestDurationBuckets = append([]float64(nil), DefaultRequestDurationBuckets...)
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingService
	}
	if t.Tracing.OTLP.Timeout == 0 {
		t.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}

	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
