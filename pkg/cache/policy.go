package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cd-Crypton/anistream/pkg/proxy/types"
)

const (
	// Policy is the Cache-Control value forced onto every stored response,
	// whatever the upstream sent.
	Policy = "public, max-age=3600"

	// DefaultMaxAge is the lifetime used when a stored response carries no
	// parseable max-age. It matches Policy.
	DefaultMaxAge = time.Hour
)

// cacheBustingHeaders are upstream headers that either defeat shared caching
// or are only meaningful for one response instance.
var cacheBustingHeaders = []string{
	"Pragma",
	"Expires",
	"Age",
	"Set-Cookie",
	"Set-Cookie2",
	"Surrogate-Control",
}

// Cacheable derives the copy of an upstream response that goes into the
// cache: same status and body, a fresh header map with Cache-Control forced
// to Policy, and cache-busting headers removed. Any header whose value
// contains secret is dropped so the credential can never be persisted.
//
// The argument is not modified; callers keep returning it to the client.
func Cacheable(resp *types.Response, secret string) *types.Response {
	header := make(http.Header, len(resp.Header))
	for key, values := range resp.Header {
		if secret != "" && containsSecret(values, secret) {
			continue
		}
		header[key] = append([]string(nil), values...)
	}
	for _, h := range cacheBustingHeaders {
		header.Del(h)
	}
	if v := header.Get("Vary"); strings.TrimSpace(v) == "*" {
		header.Del("Vary")
	}
	header.Set("Cache-Control", Policy)

	body := make([]byte, len(resp.Body))
	copy(body, resp.Body)

	return types.NewResponse(resp.StatusCode, header, body)
}

func containsSecret(values []string, secret string) bool {
	for _, v := range values {
		if strings.Contains(v, secret) {
			return true
		}
	}
	return false
}

// MaxAge extracts the max-age directive from a Cache-Control header.
// It returns false when the directive is absent or malformed.
func MaxAge(header http.Header) (time.Duration, bool) {
	for _, value := range header.Values("Cache-Control") {
		for _, directive := range strings.Split(value, ",") {
			name, arg, found := strings.Cut(strings.TrimSpace(directive), "=")
			if !found || !strings.EqualFold(name, "max-age") {
				continue
			}
			seconds, err := strconv.Atoi(strings.Trim(arg, `"`))
			if err != nil || seconds < 0 {
				return 0, false
			}
			return time.Duration(seconds) * time.Second, true
		}
	}
	return 0, false
}

// lifetime returns how long resp stays fresh once stored.
func lifetime(resp *types.Response) time.Duration {
	if ttl, ok := MaxAge(resp.Header); ok {
		return ttl
	}
	return DefaultMaxAge
}
