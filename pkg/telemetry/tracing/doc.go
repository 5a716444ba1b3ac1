// Package tracing wires OpenTelemetry tracing for the edge service.
//
// When enabled, spans are exported over OTLP gRPC. Each inbound request
// gets an "edge.request" server span from Middleware; the proxy adds child
// spans for the cache lookup and the upstream fetch. When disabled, every
// call is a no-op.
package tracing
