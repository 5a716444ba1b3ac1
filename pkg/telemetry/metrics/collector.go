package metrics

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/cd-Crypton/anistream/pkg/config"
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Collector owns every edge metric. All methods are safe on a nil
// *Collector and do nothing when metrics are disabled.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	cacheLookups *prometheus.CounterVec
	cacheStores  *prometheus.CounterVec
	cachePurged  prometheus.Counter

	upstreamRequests *prometheus.CounterVec
	upstreamDuration prometheus.Histogram

	credentialFailures prometheus.Counter
}

// NewCollector creates and registers the edge metrics. A nil registry gets
// a fresh one with the Go and process collectors attached.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = config.DefaultRequestDurationBuckets
	}

	ns, sub := cfg.Namespace, cfg.Subsystem

	c := &Collector{
		config:   cfg,
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "requests_total",
			Help: "Total number of inbound requests by route and status code",
		}, []string{"route", "status"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub,
			Name:    "request_duration_seconds",
			Help:    "Inbound request duration in seconds",
			Buckets: cfg.RequestDurationBuckets,
		}, []string{"route"}),

		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "cache_lookups_total",
			Help: "Total number of edge cache lookups by result",
		}, []string{"result"}),

		cacheStores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "cache_stores_total",
			Help: "Total number of edge cache writes by outcome",
		}, []string{"outcome"}),

		cachePurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "cache_purged_total",
			Help: "Total number of expired cache entries reclaimed",
		}),

		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "upstream_requests_total",
			Help: "Total number of upstream API calls by status class",
		}, []string{"status_class"}),

		upstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub,
			Name:    "upstream_duration_seconds",
			Help:    "Upstream API call duration in seconds",
			Buckets: cfg.RequestDurationBuckets,
		}),

		credentialFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "credential_failures_total",
			Help: "Total number of requests rejected because the upstream credential was unavailable",
		}),
	}

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.cacheLookups,
		c.cacheStores,
		c.cachePurged,
		c.upstreamRequests,
		c.upstreamDuration,
		c.credentialFailures,
	)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// Registry returns the registry the metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordRequest records a completed inbound request.
func (c *Collector) RecordRequest(route string, status int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	if route == "" {
		route = "other"
	}
	c.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordCacheLookup records a lookup result: CacheHit, CacheMiss or CacheError.
func (c *Collector) RecordCacheLookup(result string) {
	if !c.enabled() {
		return
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// RecordCacheStore records the outcome of a detached cache write.
func (c *Collector) RecordCacheStore(err error) {
	if !c.enabled() {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.cacheStores.WithLabelValues(outcome).Inc()
}

// RecordCachePurge adds n reclaimed entries.
func (c *Collector) RecordCachePurge(n int64) {
	if !c.enabled() || n <= 0 {
		return
	}
	c.cachePurged.Add(float64(n))
}

// RecordUpstream records one upstream call. status 0 means the call failed
// before a response arrived.
func (c *Collector) RecordUpstream(status int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.upstreamRequests.WithLabelValues(StatusClass(status)).Inc()
	c.upstreamDuration.Observe(duration.Seconds())
}

// RecordCredentialFailure counts a request refused for lack of a credential.
func (c *Collector) RecordCredentialFailure() {
	if !c.enabled() {
		return
	}
	c.credentialFailures.Inc()
}

// ObserveCacheSize registers a gauge reporting the live entry count of a
// cache. size is called on every scrape.
func (c *Collector) ObserveCacheSize(backend string, size func(ctx context.Context) (int, error)) {
	if !c.enabled() {
		return
	}

	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   c.config.Namespace,
		Subsystem:   c.config.Subsystem,
		Name:        "cache_entries",
		Help:        "Current number of fresh entries in the edge cache",
		ConstLabels: prometheus.Labels{"backend": backend},
	}, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := size(ctx)
		if err != nil {
			slog.Warn("failed to read cache size", "backend", backend, "error", err)
			return 0
		}
		return float64(n)
	})

	if err := c.registry.Register(gauge); err != nil {
		slog.Warn("cache size gauge not registered", "backend", backend, "error", err)
	}
}

// StatusClass maps a status code to "2xx".."5xx", or "error" for 0.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
