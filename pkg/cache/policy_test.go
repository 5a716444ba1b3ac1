package cache

import (
	"net/http"
	"testing"
	"time"

	"github.com/cd-Crypton/anistream/pkg/proxy/types"
)

func TestCacheable(t *testing.T) {
	upstream := types.NewResponse(http.StatusOK, http.Header{
		"Content-Type":  {"application/json;charset=utf-8"},
		"Cache-Control": {"no-store, private"},
		"Pragma":        {"no-cache"},
		"Expires":       {"0"},
		"Set-Cookie":    {"session=1"},
		"Vary":          {"*"},
		"X-Echo":        {"Bearer s3cret-token"},
		"Etag":          {`"abc"`},
	}, []byte(`{"results":[]}`))

	got := Cacheable(upstream, "s3cret-token")

	if got.Header.Get("Cache-Control") != Policy {
		t.Errorf("Cache-Control = %q, want %q", got.Header.Get("Cache-Control"), Policy)
	}
	for _, h := range []string{"Pragma", "Expires", "Set-Cookie", "Vary", "X-Echo"} {
		if got.Header.Get(h) != "" {
			t.Errorf("header %s kept: %q", h, got.Header.Get(h))
		}
	}
	if got.Header.Get("Content-Type") != "application/json;charset=utf-8" {
		t.Errorf("Content-Type = %q", got.Header.Get("Content-Type"))
	}
	if got.Header.Get("Etag") != `"abc"` {
		t.Errorf("Etag = %q", got.Header.Get("Etag"))
	}
	if got.StatusCode != http.StatusOK || string(got.Body) != `{"results":[]}` {
		t.Errorf("status/body = %d %q", got.StatusCode, got.Body)
	}

	// The client-facing response is untouched.
	if upstream.Header.Get("Cache-Control") != "no-store, private" {
		t.Error("Cacheable mutated the upstream response")
	}
	if upstream.Header.Get("X-Echo") == "" {
		t.Error("Cacheable dropped header from the upstream response")
	}
}

func TestCacheableKeepsNamedVary(t *testing.T) {
	upstream := types.NewResponse(http.StatusOK, http.Header{"Vary": {"Accept-Encoding"}}, nil)
	got := Cacheable(upstream, "")
	if got.Header.Get("Vary") != "Accept-Encoding" {
		t.Errorf("Vary = %q", got.Header.Get("Vary"))
	}
}

func TestMaxAge(t *testing.T) {
	tests := []struct {
		value  string
		want   time.Duration
		wantOK bool
	}{
		{Policy, time.Hour, true},
		{"max-age=60", time.Minute, true},
		{"private, Max-Age=\"10\"", 10 * time.Second, true},
		{"no-store", 0, false},
		{"max-age=abc", 0, false},
		{"max-age=-1", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			h := http.Header{}
			if tt.value != "" {
				h.Set("Cache-Control", tt.value)
			}
			got, ok := MaxAge(h)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("MaxAge(%q) = %v, %v; want %v, %v", tt.value, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLifetimeDefault(t *testing.T) {
	resp := types.NewResponse(http.StatusOK, http.Header{}, nil)
	if got := lifetime(resp); got != DefaultMaxAge {
		t.Errorf("lifetime() = %v, want %v", got, DefaultMaxAge)
	}
}
