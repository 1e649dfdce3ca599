// Package middleware exposes net/http adapters that authenticate bearer
// tokens through a jwtcache.Cache.
//
// # Guards
//
//   - [Guard]: requires a valid bearer token.
//   - [Optional]: accepts anonymous requests, rejects bad tokens.
//   - [RequireClaims]: claim predicate behind a guard, 403 on failure.
//
// Guards read the Authorization header, verify through the cache and store
// the [jwtcache.Result] in the request context.
//
// # What this package must NOT do
//
//   - Parse or verify JWTs directly. The cache does that.
//   - Leak the verification error to the client.
package middleware
