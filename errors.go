package jwtcache

import "errors"

var (
	// ErrUsage is returned when verification options are passed per call.
	// Options are fixed when the cache is built; the error is never cached.
	ErrUsage = errors.New("verification options must be set at construction, not per call")
	// ErrInvalidSize is returned by New for a non-positive byte budget.
	ErrInvalidSize = errors.New("cache size in bytes must be > 0")
	// ErrNilVerifier is returned by NewWithVerifier for a nil verifier.
	ErrNilVerifier = errors.New("nil verifier")
	// ErrInvalidConfig wraps every Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid cache configuration")
)
