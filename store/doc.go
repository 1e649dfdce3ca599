// Package store provides the weight-bounded, deadline-aware maps that back
// the verification cache.
//
// # Implementations
//
//   - [LRU]: strict least-recently-used eviction under a weight budget, on
//     top of hashicorp/golang-lru's simplelru list. Deterministic; the
//     default.
//   - [TinyLFU]: otter's W-TinyLFU policy with a weigher. Better hit ratio
//     under scan-heavy traffic, but eviction order is frequency-based.
//
// Both check deadlines against an injectable clock on every access, so an
// entry is never returned once its deadline has passed. SetUntil takes an
// absolute deadline and refuses one that has already passed.
//
// # What this package must NOT do
//
//   - Know anything about tokens or verification outcomes.
//   - Share state between instances.
package store
