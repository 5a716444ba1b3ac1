/*
Package secrets resolves the upstream API credential and any other named
secret from configurable sources.

# Providers

  - EnvProvider reads environment variables. "tmdb-api-key" maps to
    TMDB_API_KEY, optionally behind a prefix.
  - FileProvider reads one file per secret from a mounted directory and can
    watch it for rotation.

Providers are consulted in order by a Manager, which caches resolved
values for a short TTL. A file provider with watching enabled clears the
manager's cache whenever its directory changes, so a rotated key is used on
the next request.

# Usage

	manager := secrets.NewManager(
		[]secrets.SecretProvider{secrets.NewEnvProvider("")},
		secrets.CacheConfig{Enabled: true, TTL: 5 * time.Minute, MaxSize: 16},
	)

	credential := secrets.Bind(manager, "tmdb-api-key")
	token, err := credential.Secret(ctx)

Binding never returns an empty secret. Values are never logged; names are
shortened before they reach a log line.
*/
package secrets
