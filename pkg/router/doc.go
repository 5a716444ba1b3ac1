// Package router is the entry point of every edge request.
//
// Paths under the API prefix (default /api/) go to the proxy with the prefix
// stripped. Everything else goes to the static asset provider untouched.
// The provider's response is then rebuilt with a fresh header map whose
// Content-Type comes from a fixed extension table (css, js, html, svg, png,
// jpg, jpeg, gif). Unknown extensions keep the provider's content type, and
// provider error statuses pass through.
package router
