/*
Package metrics exposes Prometheus metrics for the edge service.

Metrics (namespace and subsystem default to anistream_edge):

  - requests_total{route,status}: inbound requests
  - request_duration_seconds{route}: inbound latency
  - cache_lookups_total{result}: hit, miss or error
  - cache_stores_total{outcome}: detached cache writes
  - cache_purged_total: expired entries reclaimed by the pruner
  - cache_entries{backend}: live entries, read on scrape
  - upstream_requests_total{status_class}: calls to the upstream API
  - upstream_duration_seconds: upstream latency
  - credential_failures_total: requests refused without a credential

Usage:

	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
*/
package metrics
