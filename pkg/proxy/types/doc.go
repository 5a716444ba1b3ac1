// Package types defines the buffered response and error shapes shared by
// the router, the static asset providers, the proxy and the edge cache.
package types
