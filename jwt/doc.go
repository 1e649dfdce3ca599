// Package jwt verifies and decodes signed tokens on top of golang-jwt for the
// verification cache.
//
// # Components
//
//   - [Verifier]: signature and registered-claims verification with a fixed
//     option set, plus signature-free [Verifier.Decode].
//   - [Payload]: claims of any JSON shape; objects expose registered claims.
//   - [Signer]: token issuance for tests, examples and load generation.
//
// # What this package must NOT do
//
//   - Cache anything. Every call does the full parse.
//   - Wrap golang-jwt verification errors in new sentinels; callers match on
//     the jwt.ErrToken* values directly.
package jwt
