// Package resilience groups the fault-tolerance helpers used by outbound
// calls: circuit breakers (circuitbreaker) around article page fetches,
// AI APIs and the database, and exponential backoff (retry) around AI API
// calls.
package resilience
