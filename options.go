package jwtcache

import "github.com/golang-jwt/jwt/v5"

// CallOption adjusts one verification call.
type CallOption func(*callOptions)

type callOptions struct {
	complete bool
	// usage is set by options that are only valid at construction.
	usage bool
}

// Complete returns the full decoded envelope (header, claims, signature) in
// Result.Token instead of only the claims.
func Complete() CallOption {
	return func(o *callOptions) { o.complete = true }
}

// WithParserOptions is always rejected: every call that carries it returns
// ErrUsage before the verifier runs. Verification options are fixed by New.
func WithParserOptions(...jwt.ParserOption) CallOption {
	return func(o *callOptions) { o.usage = true }
}

func collectOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
