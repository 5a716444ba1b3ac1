package types

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWithHeader_DoesNotMutateOriginal(t *testing.T) {
	orig := NewResponse(http.StatusOK, http.Header{"Content-Type": {"text/plain"}}, []byte("body"))

	out := orig.WithHeader("Content-Type", "text/css")

	if orig.Header.Get("Content-Type") != "text/plain" {
		t.Errorf("original Content-Type = %q, want text/plain", orig.Header.Get("Content-Type"))
	}
	if out.Header.Get("Content-Type") != "text/css" {
		t.Errorf("new Content-Type = %q, want text/css", out.Header.Get("Content-Type"))
	}
	if out.StatusCode != orig.StatusCode || string(out.Body) != "body" {
		t.Errorf("status/body changed: %d %q", out.StatusCode, out.Body)
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := NewResponse(http.StatusOK, http.Header{"X-A": {"1"}}, []byte("abc"))
	c := orig.Clone()

	c.Header.Set("X-A", "2")
	c.Body[0] = 'z'

	if orig.Header.Get("X-A") != "1" {
		t.Error("clone shares header map")
	}
	if string(orig.Body) != "abc" {
		t.Error("clone shares body")
	}
}

func TestReadResponse_DropsHopByHop(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Connection":   {"keep-alive"},
			"Keep-Alive":   {"timeout=5"},
			"Content-Type": {"application/json"},
		},
		Body: io.NopCloser(strings.NewReader(`{"ok":true}`)),
	}

	r, err := ReadResponse(resp)
	if err != nil {
		t.Fatalf("ReadResponse() error = %v", err)
	}
	if r.Header.Get("Connection") != "" || r.Header.Get("Keep-Alive") != "" {
		t.Errorf("hop-by-hop headers kept: %v", r.Header)
	}
	if r.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
	}
	if string(r.Body) != `{"ok":true}` {
		t.Errorf("Body = %q", r.Body)
	}
}

func TestWrite(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set("X-Request-ID", "abc")

	r := NewResponse(http.StatusNotFound, http.Header{"Content-Type": {"text/html"}}, []byte("missing"))
	if err := r.Write(w); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if w.Code != http.StatusNotFound {
		t.Errorf("Code = %d, want 404", w.Code)
	}
	if w.Body.String() != "missing" {
		t.Errorf("Body = %q", w.Body.String())
	}
	if w.Header().Get("Content-Length") != "7" {
		t.Errorf("Content-Length = %q, want 7", w.Header().Get("Content-Length"))
	}
	if w.Header().Get("X-Request-ID") != "abc" {
		t.Error("pre-set header lost")
	}
}

func TestErrorResponse(t *testing.T) {
	resp := NewErrorResponse("upstream API token could not be retrieved", ErrorTypeConfiguration, CodeCredentialUnavailable).Response()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", resp.StatusCode)
	}

	var decoded ErrorResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if decoded.Error.Code != CodeCredentialUnavailable {
		t.Errorf("Code = %q", decoded.Error.Code)
	}

	upstream := NewErrorResponse("dial failed", ErrorTypeUpstream, CodeUpstreamUnreachable).Response()
	if upstream.StatusCode != http.StatusBadGateway {
		t.Errorf("upstream StatusCode = %d, want 502", upstream.StatusCode)
	}
}
