/*
Package tls provides optional HTTPS termination for the edge server.

Most deployments run the edge behind a CDN or load balancer and leave TLS
off. When it is on, the certificate is served through a Reloader so that a
renewed certificate (cert-manager, certbot) is picked up without a restart:

	reloader, err := tls.NewReloader(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
	if err != nil {
	    return err
	}
	if err := reloader.Start(ctx); err != nil {
	    return err
	}
	defer reloader.Close()

	tlsConfig, err := tls.ServerConfig(cfg.Server.TLS, reloader)

A reload that fails (half-written file, expired certificate) is logged and
the previous certificate stays in service.
*/
package tls
