package store

import (
	"errors"
	"time"
)

var (
	// ErrClosed is returned by Set after Close.
	ErrClosed = errors.New("store is closed")
	// ErrTooLarge is returned when a single entry outweighs the whole budget.
	ErrTooLarge = errors.New("entry exceeds store weight budget")
	// ErrExpired is returned by SetUntil for a deadline that already passed.
	ErrExpired = errors.New("entry deadline already passed")
	// ErrInvalidBudget is returned for a non-positive MaxWeight.
	ErrInvalidBudget = errors.New("store MaxWeight must be > 0")
)

// Reason tells an eviction callback why an entry left the store.
type Reason uint8

const (
	// ReasonCapacity means the weight budget was exceeded.
	ReasonCapacity Reason = iota + 1
	// ReasonExpired means the entry reached its deadline.
	ReasonExpired
	// ReasonReplaced means Set overwrote the key.
	ReasonReplaced
	// ReasonRemoved means Delete was called.
	ReasonRemoved
	// ReasonPurged means Purge dropped every entry.
	ReasonPurged
)

func (r Reason) String() string {
	switch r {
	case ReasonCapacity:
		return "capacity"
	case ReasonExpired:
		return "expired"
	case ReasonReplaced:
		return "replaced"
	case ReasonRemoved:
		return "removed"
	case ReasonPurged:
		return "purged"
	default:
		return "unknown"
	}
}

// Store is a weight-bounded map with per-entry deadlines.
//
// ttl <= 0 in Set, or a zero expiresAt in SetUntil, means the entry never
// expires and leaves only under weight pressure.
type Store[V any] interface {
	Set(key string, value V, ttl time.Duration) error
	// SetUntil stores value until the absolute instant expiresAt. A deadline
	// at or before the store's now is rejected with ErrExpired.
	SetUntil(key string, value V, expiresAt time.Time) error
	Get(key string) (V, bool)
	Has(key string) bool
	// TTL reports the time left before key expires. ok is false when the
	// key is absent or has no deadline.
	TTL(key string) (remaining time.Duration, ok bool)
	Delete(key string) bool
	Len() int
	Weight() int64
	Purge()
	Close() error
}

// Config is shared by every Store implementation.
type Config[V any] struct {
	// MaxWeight is the budget in the units returned by Weigher.
	MaxWeight int64
	// Weigher returns the weight of one entry. Defaults to 1 per entry.
	Weigher func(key string, value V) int64
	// Now overrides the clock used for deadlines.
	Now func() time.Time
	// SweepInterval enables a background sweep of expired entries. Zero
	// leaves expiry lazy: checked on access, while weight pressure evicts in
	// recency order whether or not an entry has expired.
	SweepInterval time.Duration
	// OnEvict is called for every entry leaving the store. It runs while
	// the store lock is held and must not call back into the store.
	OnEvict func(key string, value V, reason Reason)
}

func (c Config[V]) withDefaults() (Config[V], error) {
	if c.MaxWeight <= 0 {
		return c, ErrInvalidBudget
	}
	if c.Weigher == nil {
		c.Weigher = func(string, V) int64 { return 1 }
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c, nil
}
