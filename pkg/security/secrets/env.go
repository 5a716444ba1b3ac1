package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider reads secrets from environment variables.
//
// A secret name maps to a variable by upper-casing it, turning hyphens into
// underscores and prepending Prefix:
//
//	"tmdb-api-key" -> "TMDB_API_KEY"
//	"tmdb-api-key" -> "ANISTREAM_SECRET_TMDB_API_KEY" (prefix "ANISTREAM_SECRET_")
type EnvProvider struct {
	Prefix string

	lookup func(string) (string, bool)
}

// NewEnvProvider creates an environment variable provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{
		Prefix: prefix,
		lookup: os.LookupEnv,
	}
}

// GetSecret reads the variable for name. An unset variable is ErrNotFound;
// a set but empty variable is returned as "" so callers can tell the two
// apart.
func (p *EnvProvider) GetSecret(ctx context.Context, name string) (string, error) {
	envVar := p.EnvVar(name)

	value, ok := p.lookup(envVar)
	if !ok {
		return "", fmt.Errorf("%w in environment: %s (env var: %s)", ErrNotFound, name, envVar)
	}
	return value, nil
}

// ListSecrets returns the secret names of all variables carrying Prefix.
// Without a prefix every variable would match, so nothing is listed.
func (p *EnvProvider) ListSecrets(ctx context.Context) ([]string, error) {
	if p.Prefix == "" {
		return nil, nil
	}

	var names []string
	for _, env := range os.Environ() {
		key, _, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, p.Prefix) {
			continue
		}
		names = append(names, p.secretName(key))
	}
	return names, nil
}

// Provider returns "env".
func (p *EnvProvider) Provider() string {
	return "env"
}

// Supports always returns true; the environment is the fallback of last
// resort.
func (p *EnvProvider) Supports(name string) bool {
	return true
}

// EnvVar returns the variable name consulted for a secret.
func (p *EnvProvider) EnvVar(name string) string {
	return p.Prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func (p *EnvProvider) secretName(envVar string) string {
	name := strings.TrimPrefix(envVar, p.Prefix)
	return strings.ToLower(strings.ReplaceAll(name, "_", "-"))
}
