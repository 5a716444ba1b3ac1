package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader serves a certificate/key pair from disk and reloads it when
// either file changes.
type Reloader struct {
	certFile string
	keyFile  string

	mu   sync.RWMutex
	cert *tls.Certificate
	leaf *x509.Certificate

	watcher   *fsnotify.Watcher
	closeOnce sync.Once
	done      chan struct{}
	logger    *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewReloader loads the pair once. It fails if the files are missing,
// do not match, or the certificate is not currently valid.
func NewReloader(certFile, keyFile string) (*Reloader, error) {
	r := &Reloader{
		certFile: certFile,
		keyFile:  keyFile,
		done:     make(chan struct{}),
		logger:   slog.Default().With("component", "tls"),
		now:      time.Now,
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Start watches the directories holding the certificate and key. Watching
// the directory rather than the file survives the atomic rename used by
// most renewal tools. The watch ends when ctx is done or Close is called.
func (r *Reloader) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create certificate watcher: %w", err)
	}

	dirs := map[string]struct{}{
		filepath.Dir(r.certFile): {},
		filepath.Dir(r.keyFile):  {},
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	r.watcher = watcher
	go r.watchLoop(ctx)
	return nil
}

func (r *Reloader) watchLoop(ctx context.Context) {
	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename

	certName, keyName := filepath.Clean(r.certFile), filepath.Clean(r.keyFile)
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&relevant == 0 {
				continue
			}
			name := filepath.Clean(event.Name)
			// Kubernetes secret mounts swap a ..data symlink instead of
			// touching the files themselves.
			if name != certName && name != keyName && filepath.Base(name) != "..data" {
				continue
			}
			if err := r.Reload(); err != nil {
				r.logger.Error("failed to reload certificate, keeping the previous one",
					"cert_file", r.certFile,
					"error", err,
				)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("certificate watcher error", "error", err)

		case <-ctx.Done():
			return
		case <-r.done:
			return
		}
	}
}

// Reload reads the pair from disk and swaps it in if it is valid.
func (r *Reloader) Reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate: %w", err)
	}

	now := r.now()
	leaf, err := ValidateCertificate(&cert, now)
	if err != nil {
		return err
	}
	cert.Leaf = leaf

	r.mu.Lock()
	r.cert = &cert
	r.leaf = leaf
	r.mu.Unlock()

	attrs := []any{
		"subject", leaf.Subject.CommonName,
		"issuer", leaf.Issuer.CommonName,
		"expires_at", leaf.NotAfter.Format(time.RFC3339),
	}
	if soon, left := ExpiresSoon(leaf, now); soon {
		r.logger.Warn("certificate expiring soon", append(attrs, "expires_in_days", int(left.Hours()/24))...)
	} else {
		r.logger.Info("certificate loaded", attrs...)
	}
	return nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (r *Reloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cert == nil {
		return nil, errors.New("no certificate loaded")
	}
	return r.cert, nil
}

// Leaf returns the parsed leaf of the certificate in service.
func (r *Reloader) Leaf() *x509.Certificate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.leaf
}

// Close stops watching. It is safe to call more than once.
func (r *Reloader) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)
		if r.watcher != nil {
			err = r.watcher.Close()
		}
	})
	return err
}
