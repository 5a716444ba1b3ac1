package router

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/cd-Crypton/anistream/pkg/assets"
	"github.com/cd-Crypton/anistream/pkg/config"
	"github.com/cd-Crypton/anistream/pkg/proxy"
	"github.com/cd-Crypton/anistream/pkg/proxy/types"
	"github.com/cd-Crypton/anistream/pkg/telemetry/logging"
	"github.com/cd-Crypton/anistream/pkg/telemetry/metrics"
	"github.com/cd-Crypton/anistream/pkg/telemetry/tracing"
)

// Route labels used in logs, metrics and spans.
const (
	RouteAPI    = "api"
	RouteStatic = "static"
)

// Options configures a Router.
type Options struct {
	// APIPrefix selects proxied requests. Default: "/api/".
	APIPrefix string

	// Proxy receives API requests with the prefix stripped.
	Proxy http.Handler

	// Assets serves everything else. Nil answers static requests with 500.
	Assets assets.Provider

	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Router splits traffic between the API proxy and the static site.
type Router struct {
	prefix  string
	proxy   http.Handler
	assets  assets.Provider
	metrics *metrics.Collector
	logger  *slog.Logger
}

// New creates a Router.
func New(opts Options) *Router {
	prefix := opts.APIPrefix
	if prefix == "" {
		prefix = config.DefaultAPIPrefix
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		prefix:  prefix,
		proxy:   opts.Proxy,
		assets:  opts.Assets,
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// ServeHTTP dispatches r by path.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

	route := RouteStatic
	if strings.HasPrefix(r.URL.Path, rt.prefix) {
		route = RouteAPI
	}

	ctx := logging.WithRoute(r.Context(), route)
	trace.SpanFromContext(ctx).SetAttributes(tracing.AttrRoute.String(route))
	r = r.WithContext(ctx)

	if route == RouteAPI {
		rt.serveAPI(sw, r)
	} else {
		rt.serveStatic(sw, r)
	}

	rt.metrics.RecordRequest(route, sw.status, time.Since(start))
}

func (rt *Router) serveAPI(w http.ResponseWriter, r *http.Request) {
	if rt.proxy == nil {
		writeError(w, errors.New("api proxy is not configured"))
		return
	}
	rt.proxy.ServeHTTP(w, stripPrefix(r, rt.prefix))
}

func (rt *Router) serveStatic(w http.ResponseWriter, r *http.Request) {
	if rt.assets == nil {
		writeError(w, &proxy.ConfigurationError{
			Code:    types.CodeAssetsUnavailable,
			Message: "static asset provider is not configured",
		})
		return
	}

	resp, err := rt.assets.Fetch(r.Context(), r)
	if err != nil {
		rt.logger.ErrorContext(r.Context(), "asset provider failed", "path", r.URL.Path, "error", err)
		writeError(w, err)
		return
	}

	if ct := ContentTypeFor(r.URL.Path); ct != "" {
		resp = resp.WithHeader("Content-Type", ct)
	}
	if err := resp.Write(w); err != nil {
		rt.logger.DebugContext(r.Context(), "client went away", "error", err)
	}
}

// stripPrefix returns a shallow copy of r whose path has prefix removed.
// The remainder keeps a leading slash: /api/discover/tv becomes
// /discover/tv. The original request is not modified.
func stripPrefix(r *http.Request, prefix string) *http.Request {
	r2 := new(http.Request)
	*r2 = *r
	u := *r.URL
	r2.URL = &u

	r2.URL.Path = "/" + strings.TrimPrefix(r.URL.Path, prefix)
	if r.URL.RawPath != "" {
		r2.URL.RawPath = "/" + strings.TrimPrefix(r.URL.RawPath, prefix)
	}
	return r2
}

func writeError(w http.ResponseWriter, err error) {
	_ = proxy.HandleError(err).Response().Write(w)
}

// statusWriter captures the status code written by the routed handler.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
