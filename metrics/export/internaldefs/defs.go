package internaldefs

import (
	"github.com/MrEthical07/jwtcache"
)

// CounterDef names one counter slot for exporters.
type CounterDef struct {
	ID   jwtcache.MetricID
	Name string
	Help string
}

// HistogramDef names one histogram slot for exporters.
type HistogramDef struct {
	ID   jwtcache.MetricID
	Name string
	Help string
}

const (
	AuditDroppedName = "jwtcache_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
	EntriesName      = "jwtcache_entries"
	EntriesHelp      = "Resident cache entries."
	WeightName       = "jwtcache_weight_bytes"
	WeightHelp       = "Resident cache weight in bytes."
)

var CounterDefs = []CounterDef{
	{ID: jwtcache.MetricCacheHit, Name: "jwtcache_hits_total", Help: "Lookups served from a cached outcome."},
	{ID: jwtcache.MetricCacheMiss, Name: "jwtcache_misses_total", Help: "Lookups that reached the verifier."},
	{ID: jwtcache.MetricNegativeHit, Name: "jwtcache_negative_hits_total", Help: "Hits on a cached verification failure."},
	{ID: jwtcache.MetricVerifySuccess, Name: "jwtcache_verify_success_total", Help: "Fresh verifications that succeeded."},
	{ID: jwtcache.MetricVerifyFailure, Name: "jwtcache_verify_failure_total", Help: "Fresh verifications that failed."},
	{ID: jwtcache.MetricUsageError, Name: "jwtcache_usage_errors_total", Help: "Calls rejected for per-call verification options."},
	{ID: jwtcache.MetricEntryStored, Name: "jwtcache_entries_stored_total", Help: "Outcomes written to the store."},
	{ID: jwtcache.MetricEntrySkipped, Name: "jwtcache_entries_skipped_total", Help: "Outcomes that were not cached."},
	{ID: jwtcache.MetricEntryEvicted, Name: "jwtcache_entries_evicted_total", Help: "Entries evicted by the byte budget."},
	{ID: jwtcache.MetricEntryExpired, Name: "jwtcache_entries_expired_total", Help: "Entries removed at their claims deadline."},
}

var HistogramDefs = []HistogramDef{
	{ID: jwtcache.MetricVerifyLatency, Name: "jwtcache_verify_latency_seconds", Help: "Verifier call latency on cache misses."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth
// bucket is +Inf.
var HistogramUpperBounds = []float64{
	0.00005,
	0.0001,
	0.00025,
	0.0005,
	0.001,
	0.0025,
	0.01,
}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters
// without native histograms.
var HistogramBoundSuffix = []string{
	"0_00005",
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"0_0025",
	"0_01",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the eight fixed buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
