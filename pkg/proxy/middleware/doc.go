// Package middleware provides the HTTP middleware wrapped around the edge
// router.
//
// The server chains them as
//
//	handler = Recovery(Logging(RequestID(CORS(router))))
//
// so a panic anywhere, including in logging, still yields a JSON 500, and
// every access log line carries the request ID.
//
//   - RecoveryMiddleware: panics become a 500 with the fault's text
//   - LoggingMiddleware: one structured access log line per request
//   - RequestIDMiddleware: X-Request-ID in, on the context, and out
//   - CORSMiddleware: CORS headers and preflight answers from config
package middleware
