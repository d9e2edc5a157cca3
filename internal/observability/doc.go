// Package observability groups the worker's structured logging, Prometheus
// metrics, and OpenTelemetry tracing.
//
// Subpackages:
//   - logging: slog construction and context propagation
//   - metrics: Prometheus collectors for fetch, ingestion and enrichment
//   - tracing: job spans and the ops-server HTTP middleware
package observability
