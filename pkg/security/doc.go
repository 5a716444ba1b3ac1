/*
Package security groups the credential and transport security of the edge.

# Secret Management

The upstream bearer token is resolved through a secrets.Manager built from
configuration. Providers are consulted in order and resolved values are
cached for a short TTL:

	manager, err := secrets.NewManagerFromConfig(cfg.Secrets)
	if err != nil {
		return err
	}
	credentials := secrets.Bind(manager, cfg.Upstream.SecretName)

	token, err := credentials.Secret(ctx)

With the default env provider the secret "tmdb-api-key" is read from
TMDB_API_KEY.

# TLS

HTTPS termination is optional. When enabled, certificates are served by a
Reloader that watches the files and swaps in renewed pairs:

	r, err := tls.NewReloader(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
	if err != nil {
		return err
	}
	tlsConfig, err := tls.ServerConfig(cfg.Server.TLS, r)
*/
package security
