package secrets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/cd-Crypton/anistream/pkg/config"
)

// Manager resolves secrets through an ordered list of providers. The first
// provider that supports a name and returns a non-empty value wins; that
// value is cached for the configured TTL.
type Manager struct {
	providers []SecretProvider
	cache     *Cache
	logger    *slog.Logger
}

type changeNotifier interface {
	OnChange(fn func())
}

// NewManager creates a manager over providers.
func NewManager(providers []SecretProvider, cacheConfig CacheConfig) *Manager {
	m := &Manager{
		providers: providers,
		cache:     NewCache(cacheConfig),
		logger:    slog.Default().With("component", "secrets.manager"),
	}

	for _, p := range providers {
		if n, ok := p.(changeNotifier); ok {
			n.OnChange(m.cache.Clear)
		}
	}
	return m
}

// NewManagerFromConfig builds the providers listed in cfg.
func NewManagerFromConfig(cfg config.SecretsConfig) (*Manager, error) {
	providers := make([]SecretProvider, 0, len(cfg.Providers))

	for i, pc := range cfg.Providers {
		switch pc.Type {
		case "env":
			providers = append(providers, NewEnvProvider(pc.Prefix))
		case "file":
			fp, err := NewFileProvider(pc.Path, pc.Watch)
			if err != nil {
				closeProviders(providers)
				return nil, fmt.Errorf("secrets provider %d: %w", i, err)
			}
			providers = append(providers, fp)
		default:
			closeProviders(providers)
			return nil, fmt.Errorf("secrets provider %d: unknown type %q", i, pc.Type)
		}
	}

	return NewManager(providers, CacheConfig{
		Enabled: cfg.Cache.Enabled,
		TTL:     cfg.Cache.TTL,
		MaxSize: cfg.Cache.MaxSize,
	}), nil
}

// GetSecret resolves name. It returns "" with a nil error when a provider
// holds the name but its value is empty and no later provider has a
// non-empty one.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	if value, ok := m.cache.Get(name); ok {
		m.logger.Debug("secret cache hit", "name", redactSecretName(name))
		return value, nil
	}

	var (
		lastErr  error
		sawEmpty bool
	)
	for _, provider := range m.providers {
		if !provider.Supports(name) {
			continue
		}

		value, err := provider.GetSecret(ctx, name)
		if err != nil {
			lastErr = err
			m.logger.Debug("provider failed to get secret",
				"provider", provider.Provider(),
				"name", redactSecretName(name),
				"error", err,
			)
			continue
		}
		if value == "" {
			sawEmpty = true
			continue
		}

		m.cache.Set(name, value)
		m.logger.Debug("secret resolved",
			"provider", provider.Provider(),
			"name", redactSecretName(name),
		)
		return value, nil
	}

	if sawEmpty {
		return "", nil
	}
	if lastErr != nil {
		return "", fmt.Errorf("failed to get secret %q: %w", name, lastErr)
	}
	return "", fmt.Errorf("%w: %q (no provider supports this secret)", ErrNotFound, name)
}

// Refresh reloads refreshable providers and clears the cache.
func (m *Manager) Refresh(ctx context.Context) error {
	var errs []string
	for _, provider := range m.providers {
		refreshable, ok := provider.(RefreshableProvider)
		if !ok {
			continue
		}
		if err := refreshable.Refresh(ctx); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", provider.Provider(), err))
		}
	}

	m.cache.Clear()

	if len(errs) > 0 {
		return fmt.Errorf("failed to refresh some providers: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ListSecrets returns the sorted union of names across providers.
func (m *Manager) ListSecrets(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, provider := range m.providers {
		names, err := provider.ListSecrets(ctx)
		if err != nil {
			m.logger.Warn("failed to list secrets from provider",
				"provider", provider.Provider(),
				"error", err,
			)
			continue
		}
		for _, n := range names {
			seen[n] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Close releases providers that hold resources, such as file watchers.
func (m *Manager) Close() error {
	return closeProviders(m.providers)
}

func closeProviders(providers []SecretProvider) error {
	var errs []error
	for _, p := range providers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// redactSecretName shortens a secret name for logs.
func redactSecretName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
