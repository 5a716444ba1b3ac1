// Package assets provides the static asset providers behind the edge
// router: a local build directory or a remote origin.
//
// Providers return the whole response, 404s included, and never rewrite
// headers. Content-Type correction by file extension is the router's job.
package assets
