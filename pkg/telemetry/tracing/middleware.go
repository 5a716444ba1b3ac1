package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on edge spans.
const (
	AttrHTTPMethod     = attribute.Key("http.request.method")
	AttrHTTPPath       = attribute.Key("url.path")
	AttrHTTPStatus     = attribute.Key("http.response.status_code")
	AttrRoute          = attribute.Key("edge.route")
	AttrCacheResult    = attribute.Key("edge.cache.result")
	AttrUpstreamPath   = attribute.Key("edge.upstream.path")
	AttrUpstreamStatus = attribute.Key("edge.upstream.status_code")
)

// Middleware starts a server span per request, continuing any trace
// context carried by the inbound headers.
func Middleware(t *Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !t.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := t.Start(ctx, "edge.request",
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					AttrHTTPMethod.String(r.Method),
					AttrHTTPPath.String(r.URL.Path),
				),
			)
			defer span.End()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))
			span.SetAttributes(AttrHTTPStatus.Int(sw.status))
		})
	}
}

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
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}
