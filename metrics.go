package jwtcache

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one fixed counter slot.
type MetricID uint16

const (
	// MetricCacheHit counts lookups served from a stored outcome.
	MetricCacheHit MetricID = iota
	// MetricCacheMiss counts lookups that reached the verifier.
	MetricCacheMiss
	// MetricNegativeHit counts hits whose stored outcome is a failure.
	MetricNegativeHit
	// MetricVerifySuccess counts fresh verifications that succeeded.
	MetricVerifySuccess
	// MetricVerifyFailure counts fresh verifications that failed.
	MetricVerifyFailure
	// MetricUsageError counts calls rejected for per-call options.
	MetricUsageError
	// MetricEntryStored counts outcomes written to the store.
	MetricEntryStored
	// MetricEntrySkipped counts outcomes that were not cached.
	MetricEntrySkipped
	// MetricEntryEvicted counts entries removed by byte pressure.
	MetricEntryEvicted
	// MetricEntryExpired counts entries removed at their deadline.
	MetricEntryExpired
	// MetricVerifyLatency is the histogram of fresh verifier calls.
	MetricVerifyLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the cache's counters. All methods are safe on a nil receiver.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics honoring cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the latency histogram. Only MetricVerifyLatency has
// buckets.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricVerifyLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current count for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Disabled metrics yield empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}

	return s
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup.
func (s MetricsSnapshot) HitRatio() float64 {
	hits := s.Counters[MetricCacheHit]
	total := hits + s.Counters[MetricCacheMiss]
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Verification is sub-millisecond for HMAC and a few ms for RSA, so the
// buckets are finer than request latency buckets.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 50:
		return 0
	case us <= 100:
		return 1
	case us <= 250:
		return 2
	case us <= 500:
		return 3
	case us <= 1000:
		return 4
	case us <= 2500:
		return 5
	case us <= 10000:
		return 6
	default:
		return 7
	}
}
