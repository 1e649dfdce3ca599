package jwtcache

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/jwtcache/jwt"
	"github.com/MrEthical07/jwtcache/store"
)

// Config is fixed for the lifetime of a Cache. Every field that affects
// whether a token verifies lives here, so one token maps to exactly one
// outcome per cache instance.
type Config struct {
	// ClockTolerance absorbs clock skew on nbf/exp, both when verifying and
	// when deriving entry deadlines.
	ClockTolerance   time.Duration
	IgnoreNotBefore  bool
	IgnoreExpiration bool

	// Verifier is forwarded to the jwt verifier built by New. NewWithVerifier
	// ignores it.
	Verifier jwt.Options

	Store         StoreConfig
	NegativeCache NegativeCacheConfig
	Metrics       MetricsConfig
	Audit         AuditConfig

	// Now is the clock for deadlines and time-based claims. Defaults to
	// time.Now.
	Now func() time.Time
	// Logger receives debug records about cache decisions. Defaults to a
	// discarding logger.
	Logger *slog.Logger
}

// StoreBackend selects the eviction policy.
type StoreBackend string

const (
	// BackendLRU is strict least-recently-used eviction. Default.
	BackendLRU StoreBackend = "lru"
	// BackendTinyLFU is otter's W-TinyLFU eviction.
	BackendTinyLFU StoreBackend = "tinylfu"
)

// StoreConfig configures the backing store.
type StoreConfig struct {
	Backend StoreBackend
	// SweepInterval enables periodic removal of expired entries for the LRU
	// backend. Zero keeps expiry lazy.
	SweepInterval time.Duration
}

// NegativeCacheConfig controls which failures are remembered.
type NegativeCacheConfig struct {
	// SkipMalformed stops caching tokens that cannot be decoded at all.
	// No deadline can be derived for them and rejecting them is cheap.
	SkipMalformed bool
}

// MetricsConfig enables in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// AuditConfig enables the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// IncludeHits also emits events for cache hits. Off by default: hits
	// are the hot path.
	IncludeHits bool
	// Sink receives events. Nil drops them.
	Sink AuditSink
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Backend:       BackendLRU,
			SweepInterval: time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.ClockTolerance < 0 {
		return fmt.Errorf("%w: ClockTolerance must be >= 0", ErrInvalidConfig)
	}
	if c.Verifier.RequireExpiration && c.IgnoreExpiration {
		return fmt.Errorf("%w: Verifier.RequireExpiration conflicts with IgnoreExpiration", ErrInvalidConfig)
	}
	switch c.Store.Backend {
	case "", BackendLRU, BackendTinyLFU:
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	if c.Store.SweepInterval < 0 {
		return fmt.Errorf("%w: Store.SweepInterval must be >= 0", ErrInvalidConfig)
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return fmt.Errorf("%w: Audit.BufferSize must be >= 0", ErrInvalidConfig)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Store.Backend == "" {
		c.Store.Backend = BackendLRU
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

func (c Config) verifierConfig(key any) jwt.Config {
	return jwt.Config{
		Options:          c.Verifier,
		Key:              key,
		Leeway:           c.ClockTolerance,
		IgnoreNotBefore:  c.IgnoreNotBefore,
		IgnoreExpiration: c.IgnoreExpiration,
		Now:              c.Now,
	}
}

func (c Config) storeConfig(sizeInBytes int64, onEvict func(string, *outcome, store.Reason)) store.Config[*outcome] {
	return store.Config[*outcome]{
		MaxWeight:     sizeInBytes,
		Weigher:       entryWeight,
		Now:           c.Now,
		SweepInterval: c.Store.SweepInterval,
		OnEvict:       onEvict,
	}
}
