package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileProvider reads secrets from one file per secret in a directory, the
// layout used by mounted Kubernetes or Docker secrets. The file name is the
// secret name and trailing whitespace is trimmed from the value.
//
// Files must be 0600 or 0400. With Watch set, the directory is watched and
// values are re-read after any change.
type FileProvider struct {
	BasePath string
	Watch    bool

	mu        sync.RWMutex
	values    map[string]string
	listeners []func()

	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

// NewFileProvider creates a file-backed provider rooted at basePath.
func NewFileProvider(basePath string, watch bool) (*FileProvider, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path is not a directory: %s", basePath)
	}

	p := &FileProvider{
		BasePath: basePath,
		Watch:    watch,
		values:   make(map[string]string),
		stopCh:   make(chan struct{}),
		logger:   slog.Default().With("component", "secrets.file"),
	}

	if watch {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		if err := watcher.Add(basePath); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch directory: %w", err)
		}
		p.watcher = watcher
		go p.watchLoop()
	}

	p.logger.Info("file secret provider started", "path", basePath, "watch", watch)
	return p, nil
}

// GetSecret returns the trimmed content of <BasePath>/<name>.
func (p *FileProvider) GetSecret(ctx context.Context, name string) (string, error) {
	p.mu.RLock()
	value, ok := p.values[name]
	p.mu.RUnlock()
	if ok {
		return value, nil
	}

	path, err := p.resolve(name)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: no file for %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret path is not a regular file: %s", name)
	}
	if mode := info.Mode().Perm(); mode != 0o600 && mode != 0o400 {
		return "", fmt.Errorf("insecure permissions on %s: %o (expected 0600 or 0400)", path, mode)
	}

	// #nosec G304 - path is confined to BasePath by resolve
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	value = strings.TrimSpace(string(data))

	p.mu.Lock()
	p.values[name] = value
	p.mu.Unlock()

	return value, nil
}

// resolve joins name onto BasePath and rejects anything escaping it.
func (p *FileProvider) resolve(name string) (string, error) {
	absBase, err := filepath.Abs(p.BasePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(p.BasePath, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve secret path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid secret path: directory traversal detected")
	}
	return absPath, nil
}

// ListSecrets returns the names of regular files in BasePath.
func (p *FileProvider) ListSecrets(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Provider returns "file".
func (p *FileProvider) Provider() string {
	return "file"
}

// Supports reports whether a regular file named name exists.
func (p *FileProvider) Supports(name string) bool {
	path, err := p.resolve(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Refresh forgets every value read so far and notifies listeners.
func (p *FileProvider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.values = make(map[string]string)
	listeners := append([]func(){}, p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return nil
}

// OnChange registers fn to run after every refresh.
func (p *FileProvider) OnChange(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Close stops watching. It is safe to call more than once.
func (p *FileProvider) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.stopCh)
		if p.watcher != nil {
			err = p.watcher.Close()
		}
	})
	return err
}

func (p *FileProvider) watchLoop() {
	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if event.Op&relevant == 0 {
				continue
			}

			p.logger.Debug("secret file changed",
				"file", filepath.Base(event.Name),
				"op", event.Op.String(),
			)
			if err := p.Refresh(context.Background()); err != nil {
				p.logger.Error("failed to refresh secrets after file change", "error", err)
			}

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("file watcher error", "error", err)

		case <-p.stopCh:
			return
		}
	}
}
