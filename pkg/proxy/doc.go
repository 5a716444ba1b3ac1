// Package proxy forwards API requests to the upstream metadata service
// through the shared edge cache.
//
// A request reaching the Proxy already carries its rewritten path; the
// router strips the /api prefix. For each request the Proxy:
//
//  1. Looks up method, path and raw query in the cache. A fresh entry is
//     returned as is and neither the secret store nor the upstream is
//     touched.
//  2. Resolves the bearer token. A missing or empty token fails the request
//     with a 500 and no upstream call is made.
//  3. Calls the upstream with the same method and body, sending only
//     Authorization and Accept headers.
//  4. Returns the upstream response unchanged. A 2xx response is then
//     copied with Cache-Control forced to cache.Policy and written to the
//     cache in the background.
//
// Background writes outlive the request. Call Wait during shutdown to let
// them finish.
//
// # Basic Usage
//
//	p, err := proxy.New(proxy.Options{
//	    BaseURL:     cfg.Upstream.BaseURL,
//	    Cache:       store,
//	    Credentials: secrets.Bind(manager, cfg.Upstream.SecretName),
//	    Client:      proxy.NewHTTPClient(cfg.Upstream),
//	})
//	if err != nil {
//	    return err
//	}
//
// # Errors
//
// Errors produced by the edge itself are JSON bodies of the form
//
//	{"error": {"message": "...", "type": "...", "code": "..."}}
//
// Upstream error statuses (404, 401, ...) are passed through verbatim.
package proxy
