package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/cd-Crypton/anistream/pkg/config"
	"github.com/cd-Crypton/anistream/pkg/proxy/middleware"
	"github.com/cd-Crypton/anistream/pkg/telemetry/health"
	"github.com/cd-Crypton/anistream/pkg/telemetry/metrics"
	"github.com/cd-Crypton/anistream/pkg/telemetry/tracing"
)

// Drainer is implemented by components with background work that must
// finish before the process exits, such as the proxy's pending cache
// writes.
type Drainer interface {
	Wait(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	Config config.ServerConfig

	// Router handles every path not claimed by an operational endpoint.
	Router http.Handler

	// Drainer is waited on after the listener stops accepting requests.
	Drainer Drainer

	Health  *health.Checker
	Metrics *metrics.Collector
	// MetricsPath is where the Prometheus handler is mounted. Empty
	// disables the endpoint.
	MetricsPath string
	Tracer      *tracing.Tracer

	// TLS, when set, makes the server speak HTTPS.
	TLS *tls.Config

	Version   string
	Commit    string
	BuildTime string
}

type shutdownHook struct {
	name string
	fn   func(ctx context.Context) error
}

// Server is the edge HTTP server.
type Server struct {
	opts       Options
	httpServer *http.Server
	listener   net.Listener
	ready      chan struct{}

	hooks        []shutdownHook
	shutdownOnce sync.Once
	shutdownErr  error

	mu        sync.RWMutex
	isRunning bool
}

// New creates a server. It does not listen until Start.
func New(opts Options) *Server {
	return &Server{
		opts:  opts,
		ready: make(chan struct{}),
	}
}

// OnShutdown registers fn to run during Shutdown, after the HTTP server has
// drained and pending background work has finished. Hooks run in the order
// they were registered; a failing hook does not stop the others.
func (s *Server) OnShutdown(name string, fn func(ctx context.Context) error) {
	s.hooks = append(s.hooks, shutdownHook{name: name, fn: fn})
}

// Start listens and serves until ctx is done or the server fails. It then
// shuts down gracefully and returns the shutdown error, if any.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	cfg := s.opts.Config
	s.httpServer = &http.Server{
		Addr:           cfg.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
		TLSConfig:      s.opts.TLS,
		ErrorLog:       slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}

	ln, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		s.setRunning(false)
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddress, err)
	}
	if s.opts.TLS != nil {
		ln = tls.NewListener(ln, s.opts.TLS)
	}
	s.listener = ln

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting edge server",
			"address", ln.Addr().String(),
			"tls_enabled", s.opts.TLS != nil,
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()
	close(s.ready)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	select {
	case <-s.ready:
		return s.listener.Addr().String()
	default:
		return ""
	}
}

// Shutdown stops accepting requests, waits for in-flight requests and
// pending cache writes, then runs the shutdown hooks. The whole sequence is
// bounded by the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		if !s.IsRunning() {
			return
		}

		timeout := s.opts.Config.ShutdownTimeout
		if timeout <= 0 {
			timeout = config.DefaultShutdownTimeout
		}
		slog.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var errs []error
		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				errs = append(errs, fmt.Errorf("server shutdown: %w", err))
			}
		}

		if s.opts.Drainer != nil {
			if err := s.opts.Drainer.Wait(shutdownCtx); err != nil {
				slog.Warn("pending cache writes abandoned", "error", err)
				errs = append(errs, err)
			}
		}

		for _, hook := range s.hooks {
			if err := hook.fn(shutdownCtx); err != nil {
				slog.Error("shutdown hook failed", "hook", hook.name, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", hook.name, err))
			}
		}

		s.setRunning(false)
		s.shutdownErr = errors.Join(errs...)
		slog.Info("edge server stopped")
	})

	return s.shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Server) setRunning(v bool) {
	s.mu.Lock()
	s.isRunning = v
	s.mu.Unlock()
}

// Handler returns the full handler: operational endpoints and the router,
// wrapped in the middleware chain.
//
// Only the exact operational paths go through the mux. Every other request
// reaches the router untouched, so paths the mux would clean and redirect
// (such as "/api//discover/tv") are proxied as sent.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	claimed := make(map[string]bool)
	handle := func(path string, h http.Handler) {
		mux.Handle(path, h)
		claimed[path] = true
	}

	if s.opts.Health != nil {
		handle("/health", s.opts.Health.LivenessHandler())
		handle("/ready", s.opts.Health.ReadinessHandler())
	}
	handle("/version", health.VersionHandler(s.opts.Version, s.opts.Commit, s.opts.BuildTime))
	if s.opts.MetricsPath != "" && s.opts.Metrics != nil {
		handle(s.opts.MetricsPath, s.opts.Metrics.Handler())
	}

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case claimed[r.URL.Path]:
			mux.ServeHTTP(w, r)
		case s.opts.Router != nil:
			s.opts.Router.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})

	handler = middleware.CORSMiddleware(s.opts.Config.CORS)(handler)
	handler = tracing.Middleware(s.opts.Tracer)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)

	// Recovery middleware (outermost)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}
