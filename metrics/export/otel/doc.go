// Package otel mirrors cache metrics into OpenTelemetry instruments.
//
// [NewExporter] registers one Int64ObservableCounter per cache counter, an
// Int64ObservableGauge per latency bucket and gauges for resident entries
// and bytes. A single callback reads [jwtcache.Cache.MetricsSnapshot] on each
// collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate cache state.
package otel
