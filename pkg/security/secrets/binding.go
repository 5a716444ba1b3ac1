package secrets

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnconfigured is returned by a Binding with no manager behind it.
	ErrUnconfigured = errors.New("secret store is not configured")

	// ErrEmptySecret is returned when the bound secret resolves to "".
	ErrEmptySecret = errors.New("secret resolved to an empty value")
)

// Binding ties one secret name to a manager. It satisfies the proxy's
// credential provider contract: every call resolves the secret afresh
// (subject to the manager's cache) and never yields an empty value.
type Binding struct {
	manager *Manager
	name    string
}

// Bind returns a Binding for name. A nil manager is allowed; the binding
// then fails every lookup with ErrUnconfigured.
func Bind(manager *Manager, name string) *Binding {
	return &Binding{manager: manager, name: name}
}

// Name returns the bound secret name.
func (b *Binding) Name() string {
	return b.name
}

// Secret resolves the bound secret.
func (b *Binding) Secret(ctx context.Context) (string, error) {
	if b == nil || b.manager == nil {
		return "", ErrUnconfigured
	}

	value, err := b.manager.GetSecret(ctx, b.name)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", redactSecretName(b.name), err)
	}
	if value == "" {
		return "", ErrEmptySecret
	}
	return value, nil
}
