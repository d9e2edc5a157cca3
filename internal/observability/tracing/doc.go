// Package tracing provides OpenTelemetry spans for job runs and the worker's
// ops HTTP server. Spans go to whatever TracerProvider is installed
// globally; without one they are no-ops.
package tracing
