// Package metrics aggregates per-tier hit/miss/eviction counters, derives
// the cache health score, and bridges stats snapshots to Prometheus.
package metrics
