package assets

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cd-Crypton/anistream/pkg/proxy/types"
)

// DirProvider serves a local build directory.
type DirProvider struct {
	root    string
	index   string
	handler http.Handler
}

// NewDirProvider returns a provider for dir. index is the document served
// for directory paths; "" means index.html.
func NewDirProvider(dir, index string) (*DirProvider, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve assets dir: %w", err)
	}
	if index == "" {
		index = "index.html"
	}
	if strings.ContainsAny(index, `/\`) {
		return nil, fmt.Errorf("index %q must be a file name", index)
	}

	return &DirProvider{
		root:    abs,
		index:   index,
		handler: http.FileServer(noListingFS{fs: http.Dir(abs), index: index}),
	}, nil
}

// Root returns the absolute directory being served.
func (p *DirProvider) Root() string {
	return p.root
}

// Fetch serves r from the directory. Missing files yield the file server's
// 404 response.
func (p *DirProvider) Fetch(ctx context.Context, r *http.Request) (*types.Response, error) {
	req := r.WithContext(ctx)

	// http.FileServer only knows index.html.
	if p.index != "index.html" && strings.HasSuffix(req.URL.Path, "/") {
		req = req.Clone(ctx)
		req.URL.Path += p.index
		req.URL.RawPath = ""
	}

	buf := newBufferWriter()
	p.handler.ServeHTTP(buf, req)
	return types.NewResponse(buf.status, buf.header, buf.body.Bytes()), nil
}

// Check reports whether the directory exists.
func (p *DirProvider) Check(context.Context) error {
	info, err := os.Stat(p.root)
	if err != nil {
		return fmt.Errorf("assets dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("assets dir %s is not a directory", p.root)
	}
	return nil
}

// noListingFS hides directories that have no index document, so the file
// server answers 404 instead of rendering a listing.
type noListingFS struct {
	fs    http.FileSystem
	index string
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if !info.IsDir() {
		return f, nil
	}

	idx, err := n.fs.Open(path.Join(name, n.index))
	if err != nil {
		_ = f.Close()
		return nil, fs.ErrNotExist
	}
	_ = idx.Close()
	return f, nil
}

// bufferWriter collects a handler's response in memory.
type bufferWriter struct {
	header      http.Header
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func newBufferWriter() *bufferWriter {
	return &bufferWriter{header: make(http.Header), status: http.StatusOK}
}

func (w *bufferWriter) Header() http.Header {
	return w.header
}

func (w *bufferWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.header = w.header.Clone()
}

func (w *bufferWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(b)
}
