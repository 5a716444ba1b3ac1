package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cd-Crypton/anistream/pkg/cache"
	"github.com/cd-Crypton/anistream/pkg/proxy/types"
)

const testToken = "tmdb-test-token"

type staticCredential struct {
	value string
	err   error
	calls atomic.Int32
}

func (c *staticCredential) Secret(context.Context) (string, error) {
	c.calls.Add(1)
	return c.value, c.err
}

// upstream is a fake metadata API that records what it receives.
type upstream struct {
	*httptest.Server

	calls atomic.Int32

	mu      sync.Mutex
	last    *http.Request
	lastURL string
	body    string
}

func newUpstream(t *testing.T, handler http.HandlerFunc) *upstream {
	t.Helper()
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		b, _ := io.ReadAll(r.Body)
		u.mu.Lock()
		u.last = r.Clone(context.Background())
		u.lastURL = r.URL.String()
		u.body = string(b)
		u.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(u.Close)
	return u
}

func (u *upstream) lastRequest() (*http.Request, string, string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.last, u.lastURL, u.body
}

func jsonOK(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json;charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = io.WriteString(w, body)
	}
}

func newTestProxy(t *testing.T, baseURL string, store cache.Store, cred CredentialProvider) *Proxy {
	t.Helper()
	p, err := New(Options{BaseURL: baseURL, Cache: store, Credentials: cred})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func serve(p *Proxy, method, target string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	p.ServeHTTP(w, httptest.NewRequest(method, target, body))
	return w
}

func waitPending(t *testing.T, p *Proxy) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ErrorDetail {
	t.Helper()
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body %q is not JSON: %v", w.Body.String(), err)
	}
	return body.Error
}

func TestProxy_MissThenHit(t *testing.T) {
	up := newUpstream(t, jsonOK(`{"results":[{"id":1}]}`))
	store := cache.NewMemoryStore(100)
	cred := &staticCredential{value: testToken}
	p := newTestProxy(t, up.URL+"/3", store, cred)

	target := "/discover/tv?sort_by=popularity.desc&page=1"

	first := serve(p, http.MethodGet, target, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}
	if first.Body.String() != `{"results":[{"id":1}]}` {
		t.Errorf("first body = %q", first.Body.String())
	}
	if got := first.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("client got Cache-Control %q, want the upstream's own", got)
	}

	req, gotURL, _ := up.lastRequest()
	if gotURL != "/3/discover/tv?sort_by=popularity.desc&page=1" {
		t.Errorf("upstream URL = %q", gotURL)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer "+testToken {
		t.Errorf("Authorization = %q", got)
	}

	waitPending(t, p)

	second := serve(p, http.MethodGet, target, nil)
	if second.Code != http.StatusOK || second.Body.String() != first.Body.String() {
		t.Errorf("second = %d %q", second.Code, second.Body.String())
	}
	if got := second.Header().Get("Cache-Control"); got != cache.Policy {
		t.Errorf("cached Cache-Control = %q, want %q", got, cache.Policy)
	}
	if n := up.calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
	if n := cred.calls.Load(); n != 1 {
		t.Errorf("credential lookups = %d, want 1 (hits skip the secret store)", n)
	}
}

func TestProxy_CacheKeyIncludesQueryAndMethod(t *testing.T) {
	up := newUpstream(t, jsonOK(`{}`))
	p := newTestProxy(t, up.URL, cache.NewMemoryStore(100), &staticCredential{value: testToken})

	serve(p, http.MethodGet, "/tv/1?language=en", nil)
	waitPending(t, p)
	serve(p, http.MethodGet, "/tv/1?language=de", nil)
	waitPending(t, p)
	serve(p, http.MethodHead, "/tv/1?language=en", nil)
	waitPending(t, p)
	serve(p, http.MethodGet, "/tv/1?language=en", nil)

	if n := up.calls.Load(); n != 3 {
		t.Errorf("upstream calls = %d, want 3", n)
	}
}

func TestProxy_NonSuccessNotCached(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnauthorized, http.StatusInternalServerError, http.StatusNotModified} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				if status != http.StatusNotModified {
					_, _ = io.WriteString(w, `{"status_code":34}`)
				}
			})
			store := cache.NewMemoryStore(100)
			p := newTestProxy(t, up.URL, store, &staticCredential{value: testToken})

			w := serve(p, http.MethodGet, "/movie/0", nil)
			if w.Code != status {
				t.Errorf("status = %d, want %d", w.Code, status)
			}
			waitPending(t, p)
			serve(p, http.MethodGet, "/movie/0", nil)

			if n := up.calls.Load(); n != 2 {
				t.Errorf("upstream calls = %d, want 2", n)
			}
			if n, _ := store.Len(context.Background()); n != 0 {
				t.Errorf("store holds %d entries, want 0", n)
			}
		})
	}
}

func TestProxy_StoredCopy(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "private, max-age=0")
		w.Header().Set("Set-Cookie", "session=1")
		w.Header().Set("X-Echo", "Bearer "+testToken)
		_, _ = io.WriteString(w, `{"id":42}`)
	})
	store := cache.NewMemoryStore(100)
	p := newTestProxy(t, up.URL, store, &staticCredential{value: testToken})

	w := serve(p, http.MethodGet, "/tv/42", nil)
	if got := w.Header().Get("Cache-Control"); got != "private, max-age=0" {
		t.Errorf("client Cache-Control = %q, want upstream value", got)
	}
	waitPending(t, p)

	entry, ok, err := store.Get(context.Background(), cache.NewKey(http.MethodGet, "/tv/42", ""))
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	h := entry.Response.Header
	if got := h.Get("Cache-Control"); got != cache.Policy {
		t.Errorf("stored Cache-Control = %q", got)
	}
	if h.Get("Set-Cookie") != "" {
		t.Error("Set-Cookie was stored")
	}
	for key, values := range h {
		for _, v := range values {
			if strings.Contains(v, testToken) {
				t.Errorf("stored header %s carries the credential", key)
			}
		}
	}
	if string(entry.Response.Body) != `{"id":42}` {
		t.Errorf("stored body = %q", entry.Response.Body)
	}
}

func TestProxy_CredentialUnavailable(t *testing.T) {
	tests := []struct {
		name string
		cred CredentialProvider
	}{
		{"empty secret", &staticCredential{value: ""}},
		{"lookup error", &staticCredential{err: errors.New("secret not found")}},
		{"no provider", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newUpstream(t, jsonOK(`{}`))
			p := newTestProxy(t, up.URL, cache.NewMemoryStore(10), tt.cred)

			w := serve(p, http.MethodGet, "/discover/tv", nil)

			if w.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want 500", w.Code)
			}
			detail := decodeError(t, w)
			if !strings.Contains(detail.Message, "token could not be retrieved") {
				t.Errorf("message = %q", detail.Message)
			}
			if detail.Code != types.CodeCredentialUnavailable {
				t.Errorf("code = %q", detail.Code)
			}
			if n := up.calls.Load(); n != 0 {
				t.Errorf("upstream calls = %d, want 0", n)
			}
		})
	}
}

func TestProxy_HitBypassesCredential(t *testing.T) {
	store := cache.NewMemoryStore(10)
	key := cache.NewKey(http.MethodGet, "/genre/tv/list", "")
	cached := types.NewResponse(http.StatusOK, http.Header{"Cache-Control": {cache.Policy}}, []byte(`{"genres":[]}`))
	if err := store.Put(context.Background(), key, cached); err != nil {
		t.Fatal(err)
	}

	up := newUpstream(t, jsonOK(`{}`))
	p := newTestProxy(t, up.URL, store, nil)

	w := serve(p, http.MethodGet, "/genre/tv/list", nil)
	if w.Code != http.StatusOK || w.Body.String() != `{"genres":[]}` {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
	if n := up.calls.Load(); n != 0 {
		t.Errorf("upstream calls = %d, want 0", n)
	}
}

func TestProxy_UpstreamHeaders(t *testing.T) {
	up := newUpstream(t, jsonOK(`{}`))
	p := newTestProxy(t, up.URL, nil, &staticCredential{value: testToken})

	req := httptest.NewRequest(http.MethodGet, "/search/tv?query=frieren", nil)
	req.Header.Set("Cookie", "session=abc")
	req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("Accept-Language", "ja")
	p.ServeHTTP(httptest.NewRecorder(), req)

	got, _, _ := up.lastRequest()
	if v := got.Header.Get("Authorization"); v != "Bearer "+testToken {
		t.Errorf("Authorization = %q", v)
	}
	if v := got.Header.Get("Accept"); v != "application/json" {
		t.Errorf("Accept = %q", v)
	}
	for _, h := range []string{"Cookie", "X-Forwarded-For", "Accept-Language", "User-Agent", "Accept-Encoding"} {
		if v := got.Header.Get(h); v != "" {
			t.Errorf("%s forwarded upstream: %q", h, v)
		}
	}
}

func TestProxy_CacheKeyIgnoresInboundHeaders(t *testing.T) {
	up := newUpstream(t, jsonOK(`{"results":[]}`))
	cred := &staticCredential{value: testToken}
	p := newTestProxy(t, up.URL, cache.NewMemoryStore(10), cred)

	variants := []map[string]string{
		{"Accept-Language": "en-US", "Cookie": "session=one"},
		{"Accept-Language": "ja", "Cookie": "session=two", "Authorization": "Basic Zm9vOmJhcg=="},
		{"Accept": "text/html", "User-Agent": "Mozilla/5.0", "Authorization": "Bearer client-token"},
	}

	for i, headers := range variants {
		req := httptest.NewRequest(http.MethodGet, "/trending/all/day?page=1", nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		p.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Body.String() != `{"results":[]}` {
			t.Fatalf("request %d = %d %q", i, w.Code, w.Body.String())
		}
		if i > 0 {
			if got := w.Header().Get("Cache-Control"); got != cache.Policy {
				t.Errorf("request %d Cache-Control = %q, want the cached policy", i, got)
			}
		}
		waitPending(t, p)
	}

	if n := up.calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
	if n := cred.calls.Load(); n != 1 {
		t.Errorf("credential lookups = %d, want 1", n)
	}
}

func TestProxy_ForwardsMethodAndBody(t *testing.T) {
	up := newUpstream(t, jsonOK(`{"success":true}`))
	p := newTestProxy(t, up.URL, nil, &staticCredential{value: testToken})

	w := serve(p, http.MethodPost, "/tv/1/rating", strings.NewReader(`{"value":8.5}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	got, _, body := up.lastRequest()
	if got.Method != http.MethodPost {
		t.Errorf("method = %s", got.Method)
	}
	if body != `{"value":8.5}` {
		t.Errorf("body = %q", body)
	}
}

func TestProxy_NoCache(t *testing.T) {
	up := newUpstream(t, jsonOK(`{}`))
	p := newTestProxy(t, up.URL, nil, &staticCredential{value: testToken})

	serve(p, http.MethodGet, "/trending/tv/day", nil)
	serve(p, http.MethodGet, "/trending/tv/day", nil)
	waitPending(t, p)

	if n := up.calls.Load(); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
}

// blockingStore holds every Put until release is closed.
type blockingStore struct {
	*cache.MemoryStore
	started chan struct{}
	release chan struct{}
}

func (s *blockingStore) Put(ctx context.Context, key cache.Key, resp *types.Response) error {
	close(s.started)
	<-s.release
	return s.MemoryStore.Put(ctx, key, resp)
}

func TestProxy_StoreAfterRespond(t *testing.T) {
	up := newUpstream(t, jsonOK(`{"page":1}`))
	store := &blockingStore{
		MemoryStore: cache.NewMemoryStore(10),
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	p := newTestProxy(t, up.URL, store, &staticCredential{value: testToken})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/tv/popular", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)
	cancel()

	if w.Code != http.StatusOK || w.Body.String() != `{"page":1}` {
		t.Fatalf("response not complete before store: %d %q", w.Code, w.Body.String())
	}

	select {
	case <-store.started:
	case <-time.After(5 * time.Second):
		t.Fatal("store never started")
	}

	short, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	if err := p.Wait(short); err == nil {
		t.Error("Wait() returned before the pending store finished")
	}

	close(store.release)
	waitPending(t, p)

	if _, ok, _ := store.Get(context.Background(), cache.NewKey(http.MethodGet, "/tv/popular", "")); !ok {
		t.Error("entry not stored after the request context was canceled")
	}
}

type failingStore struct {
	getErr error
	putErr error
	puts   atomic.Int32
}

func (s *failingStore) Get(context.Context, cache.Key) (*cache.Entry, bool, error) {
	return nil, false, s.getErr
}

func (s *failingStore) Put(context.Context, cache.Key, *types.Response) error {
	s.puts.Add(1)
	return s.putErr
}

func (s *failingStore) Len(context.Context) (int, error) { return 0, nil }
func (s *failingStore) Close() error                     { return nil }

func TestProxy_CacheFailuresNotSurfaced(t *testing.T) {
	up := newUpstream(t, jsonOK(`{"ok":true}`))
	store := &failingStore{
		getErr: errors.New("database is locked"),
		putErr: errors.New("disk full"),
	}
	p := newTestProxy(t, up.URL, store, &staticCredential{value: testToken})

	w := serve(p, http.MethodGet, "/configuration", nil)
	waitPending(t, p)

	if w.Code != http.StatusOK || w.Body.String() != `{"ok":true}` {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
	if n := store.puts.Load(); n != 1 {
		t.Errorf("puts = %d, want 1", n)
	}
}

func TestProxy_UpstreamUnreachable(t *testing.T) {
	up := newUpstream(t, jsonOK(`{}`))
	base := up.URL
	up.Close()

	p := newTestProxy(t, base, cache.NewMemoryStore(10), &staticCredential{value: testToken})
	w := serve(p, http.MethodGet, "/tv/1?api_key=x", nil)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	detail := decodeError(t, w)
	if detail.Code != types.CodeUpstreamUnreachable {
		t.Errorf("code = %q", detail.Code)
	}
	if strings.Contains(detail.Message, testToken) || strings.Contains(detail.Message, "api_key") {
		t.Errorf("message leaks request details: %q", detail.Message)
	}
}

type panickingCredential struct{}

func (panickingCredential) Secret(context.Context) (string, error) {
	panic("binding corrupted")
}

func TestProxy_PanicBecomes500(t *testing.T) {
	up := newUpstream(t, jsonOK(`{}`))
	p := newTestProxy(t, up.URL, nil, panickingCredential{})

	w := serve(p, http.MethodGet, "/tv/1", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if detail := decodeError(t, w); !strings.Contains(detail.Message, "binding corrupted") {
		t.Errorf("message = %q", detail.Message)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"https", "https://api.themoviedb.org/3", false},
		{"http", "http://127.0.0.1:9000", false},
		{"empty", "", true},
		{"no scheme", "api.themoviedb.org/3", true},
		{"ftp", "ftp://example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Options{BaseURL: tt.baseURL})
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%q) error = %v, wantErr %v", tt.baseURL, err, tt.wantErr)
			}
		})
	}
}

func TestUpstreamURL(t *testing.T) {
	tests := []struct {
		base, path, query, want string
	}{
		{"https://api.themoviedb.org/3", "/discover/tv", "page=1", "https://api.themoviedb.org/3/discover/tv?page=1"},
		{"https://api.themoviedb.org/3/", "/discover/tv", "", "https://api.themoviedb.org/3/discover/tv"},
		{"https://api.themoviedb.org/3", "/", "", "https://api.themoviedb.org/3/"},
	}
	for _, tt := range tests {
		if got := upstreamURL(tt.base, tt.path, tt.query); got != tt.want {
			t.Errorf("upstreamURL(%q, %q, %q) = %q, want %q", tt.base, tt.path, tt.query, got, tt.want)
		}
	}
}
