package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cd-Crypton/anistream/pkg/assets"
	"github.com/cd-Crypton/anistream/pkg/cache"
	"github.com/cd-Crypton/anistream/pkg/config"
	"github.com/cd-Crypton/anistream/pkg/proxy"
	"github.com/cd-Crypton/anistream/pkg/router"
	"github.com/cd-Crypton/anistream/pkg/security/secrets"
	edgetls "github.com/cd-Crypton/anistream/pkg/security/tls"
	"github.com/cd-Crypton/anistream/pkg/server"
	"github.com/cd-Crypton/anistream/pkg/telemetry/health"
	"github.com/cd-Crypton/anistream/pkg/telemetry/logging"
	"github.com/cd-Crypton/anistream/pkg/telemetry/metrics"
	"github.com/cd-Crypton/anistream/pkg/telemetry/tracing"
)

// edge holds every component of a running edge, wired together.
type edge struct {
	cfg *config.Config

	secrets     *secrets.Manager
	credentials *secrets.Binding
	store    cache.Store
	pruner   *cache.Pruner
	tracer   *tracing.Tracer
	metrics  *metrics.Collector
	health   *health.Checker
	assets   assets.Provider
	proxy    *proxy.Proxy
	router   *router.Router
	reloader *edgetls.Reloader
	tls      *tls.Config
}

// buildEdge constructs the components described by cfg. Nothing listens or
// runs in the background until start. On error, whatever was already
// opened is closed.
func buildEdge(ctx context.Context, cfg *config.Config) (_ *edge, err error) {
	e := &edge{cfg: cfg}
	defer func() {
		if err != nil {
			_ = e.close(context.Background())
		}
	}()

	e.metrics = metrics.NewCollector(cfg.Telemetry.Metrics, nil)

	e.tracer, err = tracing.New(ctx, cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	e.secrets, err = secrets.NewManagerFromConfig(cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secret store: %w", err)
	}
	e.credentials = secrets.Bind(e.secrets, cfg.Upstream.SecretName)

	if err = e.openCache(); err != nil {
		return nil, err
	}

	client := proxy.NewHTTPClient(cfg.Upstream)

	e.assets, err = assets.New(cfg.Assets, assets.NewHTTPClient())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize assets: %w", err)
	}
	switch p := e.assets.(type) {
	case nil:
		slog.Warn("no asset provider configured, static requests will fail", "backend", cfg.Assets.Backend)
	case *assets.DirProvider:
		slog.Debug("serving static assets", "dir", p.Root())
	}

	opts := proxy.Options{
		BaseURL:     cfg.Upstream.BaseURL,
		Credentials: e.credentials,
		Client:      client,
		Metrics:     e.metrics,
		Tracer:      e.tracer,
		Logger:      slog.Default().With("component", "proxy"),
	}
	if e.store != nil {
		opts.Cache = e.store
	}
	e.proxy, err = proxy.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize proxy: %w", err)
	}

	e.router = router.New(router.Options{
		APIPrefix: cfg.Routing.APIPrefix,
		Proxy:     e.proxy,
		Assets:    e.assets,
		Metrics:   e.metrics,
		Logger:    slog.Default().With("component", "router"),
	})

	if cfg.Server.TLS.Enabled {
		e.reloader, err = edgetls.NewReloader(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
		}
		e.tls, err = edgetls.ServerConfig(cfg.Server.TLS, e.reloader)
		if err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	e.health = health.New(cfg.Telemetry.Health.CheckTimeout)
	e.registerChecks()

	return e, nil
}

// openCache opens the configured store. A disabled cache leaves e.store
// nil.
func (e *edge) openCache() error {
	cc := e.cfg.Cache
	if !cc.Enabled {
		slog.Info("edge cache disabled")
		return nil
	}

	switch cc.Backend {
	case "memory", "":
		e.store = cache.NewMemoryStore(cc.Memory.MaxEntries)
	case "sqlite":
		s, err := cache.NewSQLiteStore(cache.SQLiteConfig{
			Path:         cc.SQLite.Path,
			Driver:       cc.SQLite.Driver,
			BusyTimeout:  cc.SQLite.BusyTimeout,
			MaxOpenConns: cc.SQLite.MaxOpenConns,
		})
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		e.store = s
	default:
		return fmt.Errorf("unknown cache backend %q", cc.Backend)
	}

	backend := cc.Backend
	if backend == "" {
		backend = "memory"
	}
	e.metrics.ObserveCacheSize(backend, e.store.Len)

	if purger, ok := e.store.(cache.Purger); ok && cc.PruneSchedule != "" {
		e.pruner = cache.NewPruner(purger, cc.PruneSchedule)
		e.pruner.OnPurge = e.metrics.RecordCachePurge
	}
	return nil
}

func (e *edge) registerChecks() {
	e.health.RegisterCheck("credential", func(ctx context.Context) error {
		_, err := e.credentials.Secret(ctx)
		return err
	})

	if e.store != nil {
		e.health.RegisterCheck("cache", func(ctx context.Context) error {
			_, err := e.store.Len(ctx)
			return err
		})
	}

	if checker, ok := e.assets.(assets.Checker); ok {
		e.health.RegisterCheck("assets", checker.Check)
	}
}

// start launches the background work: the cache pruner and the
// certificate watcher.
func (e *edge) start(ctx context.Context) error {
	if e.pruner != nil {
		if err := e.pruner.Start(ctx); err != nil {
			return fmt.Errorf("failed to start cache pruner: %w", err)
		}
		if next := e.pruner.NextRun(); next != nil {
			slog.Debug("cache pruner started", "next_run", next)
		}
	}
	if e.reloader != nil {
		if err := e.reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to watch TLS certificate: %w", err)
		}
	}
	return nil
}

// newServer builds the HTTP server around the router and registers the
// shutdown hooks. Hooks run after in-flight requests and pending cache
// writes have drained.
func (e *edge) newServer() *server.Server {
	srv := server.New(server.Options{
		Config:      e.cfg.Server,
		Router:      e.router,
		Drainer:     e.proxy,
		Health:      e.health,
		Metrics:     e.metrics,
		MetricsPath: e.metricsPath(),
		Tracer:      e.tracer,
		TLS:         e.tls,
		Version:     Version,
		Commit:      GitCommit,
		BuildTime:   BuildDate,
	})
	srv.OnShutdown("components", e.close)
	return srv
}

// reload re-reads the configuration file, reinstalls the logger and drops
// cached secrets so the next request resolves the credential afresh.
// Listener, upstream, cache and asset settings take effect on restart.
// On failure the running configuration is kept.
func (e *edge) reload(ctx context.Context, path string) error {
	if err := config.ReloadConfig(path); err != nil {
		return err
	}
	cfg := config.GetConfig()
	applyRunOverrides(cfg)

	if _, err := logging.Setup(cfg.Telemetry.Logging); err != nil {
		return fmt.Errorf("failed to reconfigure logging: %w", err)
	}
	if err := e.secrets.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh secrets: %w", err)
	}

	if cfg.Upstream.SecretName != e.credentials.Name() {
		slog.Warn("upstream secret name changed, restart to apply",
			"bound", e.credentials.Name(), "configured", cfg.Upstream.SecretName)
	}
	if cfg.Server.ListenAddress != e.cfg.Server.ListenAddress {
		slog.Warn("listen address changed, restart to apply",
			"current", e.cfg.Server.ListenAddress, "configured", cfg.Server.ListenAddress)
	}
	slog.Info("configuration reloaded", "path", path)
	return nil
}

func (e *edge) metricsPath() string {
	if !e.cfg.Telemetry.Metrics.Enabled {
		return ""
	}
	return e.cfg.Telemetry.Metrics.Path
}

// close releases every component in reverse dependency order. It is safe
// on a partially built edge.
func (e *edge) close(ctx context.Context) error {
	var errs []error

	if e.pruner != nil {
		e.pruner.Stop()
	}
	if e.reloader != nil {
		if err := e.reloader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("tls reloader: %w", err))
		}
	}
	if e.tracer != nil {
		if err := e.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer: %w", err))
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}
	if e.secrets != nil {
		if err := e.secrets.Close(); err != nil {
			errs = append(errs, fmt.Errorf("secrets: %w", err))
		}
	}
	return errors.Join(errs...)
}
