package store

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter/v2"
)

// noExpiry stands in for "never" in otter's expiry calculator.
const noExpiry = 100 * 365 * 24 * time.Hour

// tinyItem wraps a stored value with its deadline.
type tinyItem[V any] struct {
	value     V
	weight    uint32
	ttl       time.Duration
	expiresAt time.Time
}

func (it tinyItem[V]) expired(now time.Time) bool {
	return it.ttl > 0 && !it.expiresAt.After(now)
}

// TinyLFU is a weight-bounded store backed by otter's W-TinyLFU cache.
//
// otter enforces the weight budget and evicts by wall-clock expiry on its
// own; deadlines are additionally checked against the configured clock on
// every access. OnEvict runs asynchronously on otter's executor.
type TinyLFU[V any] struct {
	cache     *otter.Cache[string, tinyItem[V]]
	maxWeight int64
	weigher   func(string, V) int64
	now       func() time.Time
	closed    atomic.Bool
}

// NewTinyLFU constructs an otter-backed store. SweepInterval is ignored:
// otter runs its own maintenance.
func NewTinyLFU[V any](cfg Config[V]) (*TinyLFU[V], error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	t := &TinyLFU[V]{
		maxWeight: cfg.MaxWeight,
		weigher:   cfg.Weigher,
		now:       cfg.Now,
	}

	opts := &otter.Options[string, tinyItem[V]]{
		MaximumWeight: uint64(cfg.MaxWeight),
		Weigher: func(_ string, it tinyItem[V]) uint32 {
			return it.weight
		},
		ExpiryCalculator: otter.ExpiryWritingFunc(func(e otter.Entry[string, tinyItem[V]]) time.Duration {
			if e.Value.ttl <= 0 {
				return noExpiry
			}
			return e.Value.ttl
		}),
	}
	if onEvict := cfg.OnEvict; onEvict != nil {
		opts.OnDeletion = func(e otter.DeletionEvent[string, tinyItem[V]]) {
			onEvict(e.Key, e.Value.value, t.reasonFor(e))
		}
	}

	c, err := otter.New(opts)
	if err != nil {
		return nil, fmt.Errorf("create tinylfu store: %w", err)
	}
	t.cache = c
	return t, nil
}

func (t *TinyLFU[V]) reasonFor(e otter.DeletionEvent[string, tinyItem[V]]) Reason {
	switch e.Cause {
	case otter.CauseOverflow:
		return ReasonCapacity
	case otter.CauseExpiration:
		return ReasonExpired
	case otter.CauseReplacement:
		return ReasonReplaced
	default:
		if e.Value.expired(t.now()) {
			return ReasonExpired
		}
		return ReasonRemoved
	}
}

// Set stores value under key with the given ttl.
func (t *TinyLFU[V]) Set(key string, value V, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = t.now().Add(ttl)
	}
	return t.SetUntil(key, value, expiresAt)
}

// SetUntil stores value under key until expiresAt. otter's weigher is
// 32-bit, so heavier entries are rejected rather than under-counted.
func (t *TinyLFU[V]) SetUntil(key string, value V, expiresAt time.Time) error {
	if t.closed.Load() {
		return ErrClosed
	}

	weight := t.weigher(key, value)
	if weight > t.maxWeight || weight > math.MaxUint32 {
		t.cache.Invalidate(key)
		return ErrTooLarge
	}

	it := tinyItem[V]{value: value, weight: uint32(weight)}
	if !expiresAt.IsZero() {
		ttl := expiresAt.Sub(t.now())
		if ttl <= 0 {
			t.cache.Invalidate(key)
			return ErrExpired
		}
		it.ttl = ttl
		it.expiresAt = expiresAt
	}
	t.cache.Set(key, it)
	return nil
}

// Get returns the live value for key.
func (t *TinyLFU[V]) Get(key string) (V, bool) {
	var zero V
	it, ok := t.cache.GetIfPresent(key)
	if !ok {
		return zero, false
	}
	if it.expired(t.now()) {
		t.cache.Invalidate(key)
		return zero, false
	}
	return it.value, true
}

// Has reports whether key holds a live entry without recording an access.
func (t *TinyLFU[V]) Has(key string) bool {
	e, ok := t.cache.GetEntryQuietly(key)
	if !ok {
		return false
	}
	if e.Value.expired(t.now()) {
		t.cache.Invalidate(key)
		return false
	}
	return true
}

// TTL reports the time left before key expires.
func (t *TinyLFU[V]) TTL(key string) (time.Duration, bool) {
	e, ok := t.cache.GetEntryQuietly(key)
	if !ok || e.Value.ttl <= 0 {
		return 0, false
	}
	now := t.now()
	if e.Value.expired(now) {
		t.cache.Invalidate(key)
		return 0, false
	}
	return e.Value.expiresAt.Sub(now), true
}

// Delete removes key if present.
func (t *TinyLFU[V]) Delete(key string) bool {
	_, ok := t.cache.Invalidate(key)
	return ok
}

// Len returns otter's estimate of the entry count.
func (t *TinyLFU[V]) Len() int {
	return t.cache.EstimatedSize()
}

// Weight returns the weighted size tracked by otter.
func (t *TinyLFU[V]) Weight() int64 {
	return int64(t.cache.WeightedSize())
}

// Purge drops every entry.
func (t *TinyLFU[V]) Purge() {
	t.cache.InvalidateAll()
}

// CleanUp runs pending otter maintenance (evictions, expiry) synchronously.
func (t *TinyLFU[V]) CleanUp() {
	t.cache.CleanUp()
}

// Close prevents further writes and drops every entry.
func (t *TinyLFU[V]) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.cache.InvalidateAll()
	return nil
}
