package jwtcache

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks configuration warnings.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one advisory finding about a valid but questionable
// configuration.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list returned by Config.Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	codes := make([]string, 0, len(r))
	for _, w := range r {
		codes = append(codes, w.Code)
	}
	return codes
}

// BySeverity returns warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins warnings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return errors.New("config lint: " + strings.Join(parts, "; "))
}

// Lint reports settings that pass Validate but weaken the cache's guarantees.
// It never mutates the configuration.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.ClockTolerance > time.Minute {
		add("clock_tolerance_large", LintWarn,
			"ClockTolerance above 1m keeps expired tokens cached and accepted for that long")
	}
	if c.IgnoreExpiration {
		add("ignore_expiration", LintHigh,
			"IgnoreExpiration disables exp checks; valid results are cached until LRU eviction")
	}
	if c.IgnoreNotBefore {
		add("ignore_not_before", LintWarn, "IgnoreNotBefore accepts tokens before their nbf")
	}
	if !c.Verifier.RequireExpiration && !c.IgnoreExpiration {
		add("expiration_optional", LintInfo,
			"tokens without exp verify and stay cached until evicted; consider Verifier.RequireExpiration")
	}
	if len(c.Verifier.Algorithms) == 0 {
		add("algorithms_inferred", LintInfo, "accepted algorithms are inferred from the key type")
	}
	if c.Store.Backend == BackendLRU && c.Store.SweepInterval == 0 {
		add("sweep_disabled", LintInfo, "expired entries are reclaimed lazily on access or under byte pressure")
	}
	if !c.Metrics.Enabled {
		add("metrics_disabled", LintInfo, "hit and miss counters are not recorded")
	}

	return ws
}
