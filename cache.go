package jwtcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	internalaudit "github.com/MrEthical07/jwtcache/internal/audit"
	"github.com/MrEthical07/jwtcache/jwt"
	"github.com/MrEthical07/jwtcache/store"
)

// Verifier checks a token and decodes it without checking. *jwt.Verifier is
// the standard implementation.
//
// Verify must be deterministic for a fixed token apart from time-based
// claims; the cache relies on that to reuse outcomes.
type Verifier interface {
	Verify(token string) (*jwt.Decoded, error)
	Decode(token string) (*jwt.Decoded, error)
}

var _ Verifier = (*jwt.Verifier)(nil)

// Cache memoizes verification outcomes per raw token, successes and
// failures alike, until the token's claims could change the answer or the
// byte budget pushes the entry out.
//
// A Cache is safe for concurrent use. Concurrent misses on the same token
// each run the verifier; the last write wins.
type Cache struct {
	cfg      Config
	verifier Verifier
	store    store.Store[*outcome]
	policy   deadlinePolicy
	metrics  *Metrics
	audit    *internalaudit.Dispatcher
	logger   *slog.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New returns a cache holding at most sizeInBytes of outcomes and verifying
// with key under cfg.
func New(sizeInBytes int64, key any, cfg Config) (*Cache, error) {
	if sizeInBytes <= 0 {
		return nil, ErrInvalidSize
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	v, err := jwt.NewVerifier(cfg.verifierConfig(key))
	if err != nil {
		return nil, fmt.Errorf("build verifier: %w", err)
	}
	return newCache(sizeInBytes, v, cfg)
}

// NewWithVerifier is New with a caller-supplied verifier. cfg.Verifier is
// ignored; ClockTolerance and the Ignore flags still drive deadlines and
// must match what v enforces.
func NewWithVerifier(sizeInBytes int64, v Verifier, cfg Config) (*Cache, error) {
	if sizeInBytes <= 0 {
		return nil, ErrInvalidSize
	}
	if v == nil {
		return nil, ErrNilVerifier
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newCache(sizeInBytes, v, cfg.withDefaults())
}

func newCache(sizeInBytes int64, v Verifier, cfg Config) (*Cache, error) {
	c := &Cache{
		cfg:      cfg,
		verifier: v,
		policy: deadlinePolicy{
			tolerance:        cfg.ClockTolerance,
			ignoreNotBefore:  cfg.IgnoreNotBefore,
			ignoreExpiration: cfg.IgnoreExpiration,
		},
		metrics: NewMetrics(cfg.Metrics),
		logger:  cfg.Logger,
	}

	storeCfg := cfg.storeConfig(sizeInBytes, c.onEvict)
	var err error
	switch cfg.Store.Backend {
	case BackendTinyLFU:
		c.store, err = store.NewTinyLFU(storeCfg)
	default:
		c.store, err = store.NewLRU(storeCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}

	c.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, cfg.Audit.Sink)

	return c, nil
}

// Verify blocks until token is verified or answered from the cache. A
// stored or fresh failure is returned verbatim from the verifier.
func (c *Cache) Verify(token string, opts ...CallOption) (*Result, error) {
	o := collectOptions(opts)
	if o.usage {
		c.metrics.Inc(MetricUsageError)
		return nil, ErrUsage
	}
	res, err := c.verify(token, o.complete, false).settledValue()
	if err != nil {
		return nil, err
	}
	return res, nil
}

// VerifyCallback verifies token in the background and invokes cb once with
// the error (if any) and the result. On failure the result holds the
// unverified decode when the token could be decoded. Hits call cb before
// VerifyCallback returns.
func (c *Cache) VerifyCallback(token string, cb func(error, *Result), opts ...CallOption) {
	if cb == nil {
		return
	}
	o := collectOptions(opts)
	if o.usage {
		c.metrics.Inc(MetricUsageError)
		cb(ErrUsage, nil)
		return
	}
	c.verify(token, o.complete, true).then(func(res *Result, err error) {
		cb(err, res)
	})
}

// VerifyAsync verifies token in the background. The returned Future
// resolves with the result or the verification error.
func (c *Cache) VerifyAsync(token string, opts ...CallOption) *Future {
	o := collectOptions(opts)
	if o.usage {
		c.metrics.Inc(MetricUsageError)
		return resolvedFuture(nil, ErrUsage)
	}
	return c.verify(token, o.complete, true)
}

// Has reports whether a live outcome is cached for token. It never
// verifies and does not affect recency.
func (c *Cache) Has(token string) bool {
	return c.store.Has(token)
}

// RemainingTTL reports how long the cached outcome for token is trusted.
// ok is false when nothing is cached or the entry has no deadline.
func (c *Cache) RemainingTTL(token string) (time.Duration, bool) {
	return c.store.TTL(token)
}

// Len returns the number of resident entries.
func (c *Cache) Len() int {
	return c.store.Len()
}

// Weight returns the resident byte weight.
func (c *Cache) Weight() int64 {
	return c.store.Weight()
}

// Purge drops every cached outcome, e.g. after a key rotation.
func (c *Cache) Purge() {
	c.store.Purge()
}

// Close drops every entry and stops background goroutines. Verification
// keeps working afterwards but nothing is cached. Close is idempotent.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.store.Purge()
		c.closeErr = c.store.Close()
		c.audit.Close()
	})
	return c.closeErr
}

// Metrics returns the live counters.
func (c *Cache) Metrics() *Metrics {
	return c.metrics
}

// MetricsSnapshot returns a point-in-time copy of the counters.
func (c *Cache) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped.
func (c *Cache) AuditDropped() uint64 {
	return c.audit.Dropped()
}

// verify is the single routine behind the three calling conventions. It
// always returns a Future; in sync mode the Future is already settled.
func (c *Cache) verify(token string, complete, async bool) *Future {
	if o, ok := c.store.Get(token); ok {
		c.metrics.Inc(MetricCacheHit)
		if o.err != nil {
			c.metrics.Inc(MetricNegativeHit)
		}
		c.emitAudit(token, o, true)
		return resolvedFuture(o.result(complete))
	}
	c.metrics.Inc(MetricCacheMiss)

	// The unverified decode feeds the deadline and backs the result shape
	// of a failed verification.
	decoded, _ := c.verifier.Decode(token)
	var deadline time.Time
	if decoded != nil {
		if d, ok := computeDeadline(decoded.Claims, c.cfg.Now(), c.policy); ok {
			deadline = d
		}
	}

	if !async {
		o := c.populate(token, decoded, deadline)
		return resolvedFuture(o.result(complete))
	}

	f := newFuture()
	go func() {
		o := c.populate(token, decoded, deadline)
		f.resolve(o.result(complete))
	}()
	return f
}

// populate runs the verifier and stores its outcome until deadline (zero for
// none). Verifier failures are captured into the outcome, never returned.
func (c *Cache) populate(token string, decoded *jwt.Decoded, deadline time.Time) *outcome {
	start := time.Now()
	verified, err := c.verifier.Verify(token)
	c.metrics.Observe(MetricVerifyLatency, time.Since(start))

	var o *outcome
	if err != nil {
		c.metrics.Inc(MetricVerifyFailure)
		o = newOutcome(err, decoded)
	} else {
		c.metrics.Inc(MetricVerifySuccess)
		o = newOutcome(nil, verified)
	}

	c.remember(token, o, deadline)
	c.emitAudit(token, o, false)
	return o
}

func (c *Cache) remember(token string, o *outcome, deadline time.Time) {
	if c.closed.Load() {
		c.metrics.Inc(MetricEntrySkipped)
		return
	}
	if o.decoded == nil && c.cfg.NegativeCache.SkipMalformed {
		c.metrics.Inc(MetricEntrySkipped)
		c.logger.Debug("jwtcache: malformed token not cached",
			"fingerprint", internalaudit.Fingerprint(token))
		return
	}

	// A deadline that passed while verifying is rejected by the store.
	if err := c.store.SetUntil(token, o, deadline); err != nil {
		c.metrics.Inc(MetricEntrySkipped)
		if !errors.Is(err, store.ErrClosed) {
			c.logger.Debug("jwtcache: outcome not cached",
				"fingerprint", internalaudit.Fingerprint(token),
				"weight", entryWeight(token, o),
				"error", err)
		}
		return
	}

	c.metrics.Inc(MetricEntryStored)
	if c.logger.Enabled(context.Background(), slog.LevelDebug) {
		c.logger.Debug("jwtcache: outcome cached",
			"fingerprint", internalaudit.Fingerprint(token),
			"valid", o.err == nil,
			"deadline", deadline,
			"weight", entryWeight(token, o))
	}
}

// onEvict runs under the store lock; it only touches atomic counters.
func (c *Cache) onEvict(_ string, _ *outcome, reason store.Reason) {
	switch reason {
	case store.ReasonCapacity:
		c.metrics.Inc(MetricEntryEvicted)
	case store.ReasonExpired:
		c.metrics.Inc(MetricEntryExpired)
	}
}
