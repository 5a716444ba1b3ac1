package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned (wrapped) when a provider has no value for a name.
var ErrNotFound = errors.New("secret not found")

// SecretProvider retrieves named secrets from one backend.
type SecretProvider interface {
	// GetSecret retrieves a secret by name.
	GetSecret(ctx context.Context, name string) (string, error)

	// ListSecrets returns the names this provider can serve. Values are
	// never included.
	ListSecrets(ctx context.Context) ([]string, error)

	// Provider returns the provider kind ("env", "file").
	Provider() string

	// Supports reports whether the provider should be asked for name.
	Supports(name string) bool
}

// RefreshableProvider can drop whatever it has read so far and reload on
// the next lookup.
type RefreshableProvider interface {
	SecretProvider

	Refresh(ctx context.Context) error
}
