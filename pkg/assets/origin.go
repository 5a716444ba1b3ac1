package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cd-Crypton/anistream/pkg/proxy/types"
)

// hopByHop lists request headers that are not forwarded to the origin.
var hopByHop = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// OriginProvider fetches the static site from a remote HTTP origin, such as
// an object-storage website endpoint.
type OriginProvider struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPClient returns the client used for origin fetches, with its own
// timeout and connection pool. Redirects are returned to the caller rather
// than followed.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 50,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// NewOriginProvider returns a provider for the origin at rawURL. A nil
// client means NewHTTPClient.
func NewOriginProvider(rawURL string, client *http.Client) (*OriginProvider, error) {
	if rawURL == "" {
		return nil, errors.New("origin URL is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid origin URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("origin URL must be http or https, got %q", u.Scheme)
	}

	if client == nil {
		client = NewHTTPClient()
	}
	return &OriginProvider{base: u, client: client}, nil
}

// Fetch forwards r to the origin with its method, headers and body.
func (p *OriginProvider) Fetch(ctx context.Context, r *http.Request) (*types.Response, error) {
	target := p.resolve(r.URL)

	var body io.Reader
	if r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0 {
		body = r.Body
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build origin request: %w", err)
	}
	req.Header = r.Header.Clone()
	for _, h := range hopByHop {
		req.Header.Del(h)
	}
	if body != nil {
		req.ContentLength = r.ContentLength
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s from origin: %w", r.URL.Path, err)
	}
	defer resp.Body.Close()

	return types.ReadResponse(resp)
}

// Check issues a HEAD for the origin root. Any HTTP response counts as
// reachable.
func (p *OriginProvider) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.base.String(), nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("origin unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

// resolve maps the inbound URL onto the origin, keeping any base path.
func (p *OriginProvider) resolve(in *url.URL) string {
	u := *p.base
	u.Path = strings.TrimRight(p.base.Path, "/") + in.Path
	u.RawPath = ""
	u.RawQuery = in.RawQuery
	return u.String()
}
