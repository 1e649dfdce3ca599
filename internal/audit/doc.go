// Package audit implements async event dispatching for verification decisions.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record with event ID, timestamp, token fingerprint,
//     subject, issuer and outcome.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit. That responsibility belongs to the Cache.
//
// # What this package must NOT do
//
//   - Record raw tokens. Only [Fingerprint] output leaves the cache.
//   - Import jwtcache or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
