package types

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Response is a fully buffered HTTP response: status, headers and body.
//
// Responses crossing a component boundary are treated as immutable. Code
// that needs a different header set builds a new Response with a fresh
// header map (see WithHeader) instead of editing the one it was handed.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// Body is the complete response body.
	Body []byte
}

// hopByHopHeaders are connection-scoped and never copied between hops.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// NewResponse creates a response owning the given header and body.
func NewResponse(status int, header http.Header, body []byte) *Response {
	if header == nil {
		header = make(http.Header)
	}
	return &Response{
		StatusCode: status,
		Header:     header,
		Body:       body,
	}
}

// ReadResponse buffers an *http.Response into a Response and closes its
// body. Hop-by-hop headers are dropped.
func ReadResponse(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	header := resp.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	for _, h := range hopByHopHeaders {
		header.Del(h)
	}

	return NewResponse(resp.StatusCode, header, body), nil
}

// Clone returns a deep copy of the response.
func (r *Response) Clone() *Response {
	body := make([]byte, len(r.Body))
	copy(body, r.Body)
	return NewResponse(r.StatusCode, r.Header.Clone(), body)
}

// WithHeader returns a new response with the same status and body and a
// fresh header map in which key is set to value. The receiver is not
// modified.
func (r *Response) WithHeader(key, value string) *Response {
	header := r.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set(key, value)
	return NewResponse(r.StatusCode, header, r.Body)
}

// IsSuccess reports whether the status is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Write copies the response onto w. Headers already present on w (such as
// X-Request-ID set by middleware) are kept unless the response overrides them.
func (r *Response) Write(w http.ResponseWriter) error {
	dst := w.Header()
	for key, values := range r.Header {
		dst[key] = append([]string(nil), values...)
	}
	if dst.Get("Content-Length") == "" && bodyAllowed(r.StatusCode) {
		dst.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}

	w.WriteHeader(r.StatusCode)

	if len(r.Body) == 0 || !bodyAllowed(r.StatusCode) {
		return nil
	}
	if _, err := w.Write(r.Body); err != nil {
		return fmt.Errorf("failed to write response body: %w", err)
	}
	return nil
}

// bodyAllowed reports whether a response with the given status may carry
// a body.
func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
