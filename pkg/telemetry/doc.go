// Package telemetry groups the observability packages of the edge service.
//
//   - logging: slog setup with credential redaction
//   - metrics: Prometheus collector and /metrics handler
//   - tracing: OpenTelemetry tracer and request middleware
//   - health: liveness, readiness and version endpoints
package telemetry
