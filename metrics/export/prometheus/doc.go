// Package prometheus exposes cache metrics as a prometheus.Collector.
//
// [NewCollector] reads [jwtcache.Cache.MetricsSnapshot] on every scrape and
// emits const metrics: jwtcache_*_total counters, the
// jwtcache_verify_latency_seconds histogram and entry/weight gauges.
//
// # What this package must NOT do
//
//   - Register with the global Prometheus registry. Callers register the
//     collector or mount [Collector.Handler].
//   - Mutate cache state.
package prometheus
