package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/cd-Crypton/anistream/pkg/cache"
	"github.com/cd-Crypton/anistream/pkg/config"
	"github.com/cd-Crypton/anistream/pkg/proxy/types"
	"github.com/cd-Crypton/anistream/pkg/telemetry/metrics"
	"github.com/cd-Crypton/anistream/pkg/telemetry/tracing"
)

// CredentialProvider resolves the bearer token sent upstream. It is asked
// on every cache miss, never on a hit.
type CredentialProvider interface {
	Secret(ctx context.Context) (string, error)
}

// Options configures a Proxy.
type Options struct {
	// BaseURL is the upstream API root. Required.
	BaseURL string

	// Cache is the shared response cache. Nil disables caching.
	Cache cache.Store

	// Credentials resolves the bearer token. Nil makes every cache miss
	// fail with a configuration error.
	Credentials CredentialProvider

	// Client performs upstream calls. Nil uses a client from
	// NewHTTPClient with default settings.
	Client *http.Client

	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Logger  *slog.Logger
}

// Proxy serves rewritten /api/ requests from the cache or the upstream API.
// The request it receives must already carry the rewritten path, i.e. the
// router has stripped the API prefix.
type Proxy struct {
	baseURL     string
	cache       cache.Store
	credentials CredentialProvider
	client      *http.Client
	metrics     *metrics.Collector
	tracer      *tracing.Tracer
	logger      *slog.Logger

	// pending tracks cache writes still running after their response was
	// sent.
	pending sync.WaitGroup
}

// New creates a Proxy.
func New(opts Options) (*Proxy, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("upstream base URL is required")
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("upstream base URL must be http or https, got %q", u.Scheme)
	}

	p := &Proxy{
		baseURL:     opts.BaseURL,
		cache:       opts.Cache,
		credentials: opts.Credentials,
		client:      opts.Client,
		metrics:     opts.Metrics,
		tracer:      opts.Tracer,
		logger:      opts.Logger,
	}
	if p.client == nil {
		p.client = NewHTTPClient(defaultUpstreamConfig())
	}
	if p.tracer == nil {
		p.tracer = tracing.Noop()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// ServeHTTP answers one API request. The response is fully written before
// a fresh upstream response is handed to the cache.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, store := p.handle(r)

	if err := resp.Write(w); err != nil {
		p.logger.DebugContext(r.Context(), "client went away", "error", err)
	}

	if store != nil {
		p.storeAsync(r.Context(), store.key, store.resp)
	}
}

// Wait blocks until every pending cache write finishes or ctx is done.
func (p *Proxy) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for pending cache writes: %w", ctx.Err())
	}
}

// pendingStore is a response waiting to be written to the cache.
type pendingStore struct {
	key  cache.Key
	resp *types.Response
}

// handle produces the response for r. Any fault, including a panic, comes
// back as a JSON error response.
func (p *Proxy) handle(r *http.Request) (resp *types.Response, store *pendingStore) {
	ctx, span := p.tracer.Start(r.Context(), "edge.proxy",
		trace.WithAttributes(tracing.AttrUpstreamPath.String(r.URL.EscapedPath())),
	)
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("unhandled fault: %v", rec)
			p.logger.ErrorContext(ctx, "panic in proxy", "error", err, "path", r.URL.Path)
			tracing.SetError(span, err)
			resp, store = types.NewServerError(err.Error()).Response(), nil
		}
	}()

	var err error
	resp, store, err = p.serve(ctx, r, span)
	if err != nil {
		tracing.SetError(span, err)
		return HandleError(err).Response(), nil
	}
	return resp, store
}

func (p *Proxy) serve(ctx context.Context, r *http.Request, span trace.Span) (*types.Response, *pendingStore, error) {
	path := r.URL.EscapedPath()
	key := cache.NewKey(r.Method, path, r.URL.RawQuery)

	if cached := p.lookup(ctx, key); cached != nil {
		span.SetAttributes(tracing.AttrCacheResult.String(metrics.CacheHit))
		return cached, nil, nil
	}
	span.SetAttributes(tracing.AttrCacheResult.String(metrics.CacheMiss))

	secret, err := p.secret(ctx)
	if err != nil {
		p.metrics.RecordCredentialFailure()
		p.logger.ErrorContext(ctx, "upstream credential unavailable", "error", err)
		return nil, nil, credentialError(err)
	}

	resp, err := p.fetch(ctx, r, path, secret)
	if err != nil {
		return nil, nil, err
	}
	span.SetAttributes(tracing.AttrUpstreamStatus.Int(resp.StatusCode))

	if p.cache == nil || !resp.IsSuccess() {
		return resp, nil, nil
	}
	return resp, &pendingStore{key: key, resp: cache.Cacheable(resp, secret)}, nil
}

// lookup returns the cached response for key, or nil. Store errors count
// as a miss.
func (p *Proxy) lookup(ctx context.Context, key cache.Key) *types.Response {
	if p.cache == nil {
		return nil
	}

	entry, ok, err := p.cache.Get(ctx, key)
	switch {
	case err != nil:
		p.metrics.RecordCacheLookup(metrics.CacheError)
		p.logger.WarnContext(ctx, "cache lookup failed", "key", key.String(), "error", err)
		return nil
	case !ok:
		p.metrics.RecordCacheLookup(metrics.CacheMiss)
		return nil
	}

	p.metrics.RecordCacheLookup(metrics.CacheHit)
	p.logger.DebugContext(ctx, "cache hit", "key", key.String())
	return entry.Response
}

func (p *Proxy) secret(ctx context.Context) (string, error) {
	if p.credentials == nil {
		return "", errors.New("no credential provider bound")
	}
	secret, err := p.credentials.Secret(ctx)
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", errors.New("credential is empty")
	}
	return secret, nil
}

// fetch performs the upstream call. Client disconnects do not cancel it;
// the upstream response may still be cached.
func (p *Proxy) fetch(ctx context.Context, r *http.Request, path, secret string) (*types.Response, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := p.tracer.Start(ctx, "edge.upstream", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	target := upstreamURL(p.baseURL, path, r.URL.RawQuery)
	req, err := newUpstreamRequest(ctx, r.Method, target, secret, requestBody(r))
	if err != nil {
		return nil, &UpstreamError{Method: r.Method, Path: path, Err: err}
	}

	start := time.Now()
	httpResp, err := p.client.Do(req)
	if err != nil {
		p.metrics.RecordUpstream(0, time.Since(start))
		tracing.SetError(span, err)
		p.logger.ErrorContext(ctx, "upstream call failed", "method", r.Method, "path", path, "error", err)
		return nil, &UpstreamError{Method: r.Method, Path: path, Err: unwrapURLError(err)}
	}
	defer httpResp.Body.Close()

	resp, err := types.ReadResponse(httpResp)
	duration := time.Since(start)
	if err != nil {
		p.metrics.RecordUpstream(0, duration)
		tracing.SetError(span, err)
		return nil, &UpstreamError{Method: r.Method, Path: path, Err: err}
	}

	p.metrics.RecordUpstream(resp.StatusCode, duration)
	span.SetAttributes(tracing.AttrUpstreamStatus.Int(resp.StatusCode))
	p.logger.DebugContext(ctx, "upstream responded",
		"method", r.Method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
	)
	return resp, nil
}

// storeAsync writes resp to the cache after the client has its response.
// Failures are logged and counted, never surfaced.
func (p *Proxy) storeAsync(parent context.Context, key cache.Key, resp *types.Response) {
	ctx := context.WithoutCancel(parent)

	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		defer func() {
			if rec := recover(); rec != nil {
				p.logger.ErrorContext(ctx, "panic while storing response", "key", key.String(), "error", rec)
			}
		}()

		err := p.cache.Put(ctx, key, resp)
		p.metrics.RecordCacheStore(err)
		if err != nil {
			p.logger.WarnContext(ctx, "cache store failed", "key", key.String(), "error", err)
		}
	}()
}

// unwrapURLError strips the *url.Error wrapper, whose message repeats the
// full URL including the query string.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func defaultUpstreamConfig() config.UpstreamConfig {
	return config.UpstreamConfig{MaxIdleConns: config.DefaultUpstreamMaxIdleConns}
}
