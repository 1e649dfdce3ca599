// Package jwtcache caches JWT verification outcomes, valid and invalid alike,
// keyed by the raw token string.
//
// Signature checks dominate request latency for services that see the same
// token many times a minute. A [Cache] verifies a token once, stores the
// outcome with a deadline derived from the token's nbf/exp claims, and
// answers repeats from memory until that deadline or until the byte budget
// evicts the entry.
//
// Three calling conventions share one internal routine: [Cache.Verify]
// blocks, [Cache.VerifyCallback] hands the outcome to a callback and
// [Cache.VerifyAsync] returns a [Future].
//
// # Architecture boundaries
//
// jwtcache owns the caching policy: deadlines, negative caching, weights,
// metrics and audit. Signature verification lives in the jwt sub-package,
// eviction data structures in store, and event delivery in internal/audit.
//
// # What this package must NOT do
//
//   - Serve an outcome at or after its deadline.
//   - Accept verification options per call. Options are fixed by [New].
//   - Wrap or replace verifier errors. Callers match jwt.ErrToken* directly.
//   - Share entries across processes.
//
// # Performance contract
//
// A hit takes one store lock and never calls the verifier. A miss
// decodes the token twice (once unverified for the deadline, once verified)
// and serializes the outcome once to weigh it.
package jwtcache
