// Package metrics holds the worker's Prometheus collectors and the small
// recording helpers the fetch pipeline calls.
//
// All collectors are registered with the default registry via promauto and
// exposed on the worker's /metrics endpoint.
package metrics
