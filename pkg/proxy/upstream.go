package proxy

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cd-Crypton/anistream/pkg/config"
)

// NewHTTPClient builds the client used for upstream calls. Transparent
// gzip is disabled so the upstream body reaches the client and the cache
// exactly as sent, Content-Encoding included.
func NewHTTPClient(cfg config.UpstreamConfig) *http.Client {
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = config.DefaultUpstreamMaxIdleConns
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          maxIdle,
		MaxIdleConnsPerHost:   maxIdle,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		DisableCompression:    true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		// Redirects are the client's business; pass them through.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// upstreamURL joins the base URL, the rewritten path and the raw query.
// The query is appended only when present.
func upstreamURL(base, path, rawQuery string) string {
	u := strings.TrimRight(base, "/") + path
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

// newUpstreamRequest builds the outbound request. It carries exactly two
// headers, the bearer credential and Accept; nothing from the inbound
// request is forwarded apart from the method and body.
func newUpstreamRequest(ctx context.Context, method, url, secret string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header = http.Header{
		"Authorization": {"Bearer " + secret},
		"Accept":        {"application/json"},
		// An explicitly empty User-Agent is not sent.
		"User-Agent": {""},
	}
	return req, nil
}

// requestBody returns the inbound body to forward, or nil when there is
// none.
func requestBody(r *http.Request) io.Reader {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if r.ContentLength == 0 {
		return nil
	}
	return r.Body
}
