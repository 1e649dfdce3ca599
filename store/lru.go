package store

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// LRU is a concurrency-safe, weight-bounded least-recently-used store.
//
// Recency ordering comes from simplelru; this type adds byte accounting and
// per-entry deadlines on top. Every read and write takes the single mutex,
// since even Get reorders the recency list.
//
// Ownership model:
// LRU owns its sweep goroutine. Call Close to stop it.
type LRU[V any] struct {
	mu sync.Mutex

	lru       *simplelru.LRU[string, *item[V]]
	maxWeight int64
	weight    int64
	weigher   func(string, V) int64
	now       func() time.Time
	onEvict   func(string, V, Reason)

	// reason tags evictions triggered by the next simplelru call.
	reason Reason

	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	sweepEvery time.Duration
	closed     bool
}

// item is the value held in the recency list.
//
// hasExpiry=false means "never expires".
type item[V any] struct {
	value     V
	weight    int64
	expiresAt time.Time
	hasExpiry bool
}

func (it *item[V]) expired(now time.Time) bool {
	return it.hasExpiry && !it.expiresAt.After(now)
}

// NewLRU constructs an LRU store and starts the sweep loop when
// cfg.SweepInterval > 0.
func NewLRU[V any](cfg Config[V]) (*LRU[V], error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &LRU[V]{
		maxWeight:  cfg.MaxWeight,
		weigher:    cfg.Weigher,
		now:        cfg.Now,
		onEvict:    cfg.OnEvict,
		ctx:        ctx,
		cancel:     cancel,
		sweepEvery: cfg.SweepInterval,
	}

	// The entry count is unbounded; weight is the only limit.
	inner, err := simplelru.NewLRU[string, *item[V]](math.MaxInt, l.evicted)
	if err != nil {
		cancel()
		return nil, err
	}
	l.lru = inner

	if l.sweepEvery > 0 {
		l.wg.Add(1)
		go l.sweepLoop()
	}

	return l, nil
}

// evicted runs inside simplelru calls, which only happen under l.mu.
func (l *LRU[V]) evicted(key string, it *item[V]) {
	l.weight -= it.weight
	if l.onEvict != nil {
		l.onEvict(key, it.value, l.reason)
	}
}

// Set writes or overwrites key. Overwriting counts as use.
func (l *LRU[V]) Set(key string, value V, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = l.now().Add(ttl)
	}
	return l.SetUntil(key, value, expiresAt)
}

// SetUntil writes or overwrites key with an absolute deadline.
func (l *LRU[V]) SetUntil(key string, value V, expiresAt time.Time) error {
	weight := l.weigher(key, value)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	l.removeLocked(key, ReasonReplaced)

	if weight > l.maxWeight {
		return ErrTooLarge
	}

	it := &item[V]{value: value, weight: weight}
	if !expiresAt.IsZero() {
		if !expiresAt.After(l.now()) {
			return ErrExpired
		}
		it.hasExpiry = true
		it.expiresAt = expiresAt
	}

	l.lru.Add(key, it)
	l.weight += weight

	l.evictIfNeededLocked()
	return nil
}

// Get returns the live value for key and marks it most recently used.
// Expired entries are removed on access.
func (l *LRU[V]) Get(key string) (V, bool) {
	var zero V

	l.mu.Lock()
	defer l.mu.Unlock()

	it, ok := l.lru.Peek(key)
	if !ok {
		return zero, false
	}
	if it.expired(l.now()) {
		l.removeLocked(key, ReasonExpired)
		return zero, false
	}

	l.lru.Get(key)
	return it.value, true
}

// Has reports whether key holds a live entry without touching recency.
func (l *LRU[V]) Has(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	it, ok := l.lru.Peek(key)
	if !ok {
		return false
	}
	if it.expired(l.now()) {
		l.removeLocked(key, ReasonExpired)
		return false
	}
	return true
}

// TTL reports the time left before key expires.
func (l *LRU[V]) TTL(key string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	it, ok := l.lru.Peek(key)
	if !ok {
		return 0, false
	}
	now := l.now()
	if it.expired(now) {
		l.removeLocked(key, ReasonExpired)
		return 0, false
	}
	if !it.hasExpiry {
		return 0, false
	}
	return it.expiresAt.Sub(now), true
}

// Delete removes key if present.
func (l *LRU[V]) Delete(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.removeLocked(key, ReasonRemoved)
}

// Len returns the number of stored entries.
//
// Note: Len includes entries that have expired but haven't been swept yet.
func (l *LRU[V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lru.Len()
}

// Weight returns the total weight of stored entries.
func (l *LRU[V]) Weight() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.weight
}

// Keys returns keys from least to most recently used.
func (l *LRU[V]) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lru.Keys()
}

// Purge drops every entry.
func (l *LRU[V]) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.reason = ReasonPurged
	l.lru.Purge()
	l.weight = 0
}

// Close stops the sweep goroutine and prevents further writes.
//
// Close is safe to call multiple times.
func (l *LRU[V]) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	cancel := l.cancel
	l.mu.Unlock()

	// Cancel outside the lock so shutdown doesn't block readers/writers.
	cancel()
	l.wg.Wait()
	return nil
}

func (l *LRU[V]) removeLocked(key string, reason Reason) bool {
	l.reason = reason
	return l.lru.Remove(key)
}

// evictIfNeededLocked drops least recently used entries until the budget
// holds. Expired entries are reclaimed lazily and by Sweep, not here.
func (l *LRU[V]) evictIfNeededLocked() {
	for l.weight > l.maxWeight {
		l.reason = ReasonCapacity
		if _, _, ok := l.lru.RemoveOldest(); !ok {
			return
		}
	}
}

// deleteExpiredLocked removes all expired keys. O(n).
func (l *LRU[V]) deleteExpiredLocked(now time.Time) int {
	removed := 0
	for _, key := range l.lru.Keys() {
		it, ok := l.lru.Peek(key)
		if ok && it.expired(now) {
			l.removeLocked(key, ReasonExpired)
			removed++
		}
	}
	return removed
}
