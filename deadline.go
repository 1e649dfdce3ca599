package jwtcache

import (
	"time"

	"github.com/MrEthical07/jwtcache/jwt"
)

type deadlinePolicy struct {
	tolerance        time.Duration
	ignoreNotBefore  bool
	ignoreExpiration bool
}

// computeDeadline returns the instant an outcome for claims stops being
// trustworthy. ok is false when no claim bounds it; such entries leave only
// under byte pressure. The deadline is absolute so time spent verifying
// never extends it.
//
// nbf wins over exp: a not-yet-valid token changes state at nbf first.
// Tokens already outside their window get no deadline, their cached error
// stays correct.
func computeDeadline(claims jwt.Payload, now time.Time, p deadlinePolicy) (time.Time, bool) {
	m, isObject := claims.Map()
	if !isObject {
		return time.Time{}, false
	}

	if !p.ignoreNotBefore {
		if nbf, err := m.GetNotBefore(); err == nil && nbf != nil {
			if now.Add(p.tolerance).Before(nbf.Time) {
				return nbf.Time.Add(-p.tolerance), true
			}
		}
	}

	if !p.ignoreExpiration {
		if exp, err := m.GetExpirationTime(); err == nil && exp != nil {
			if now.Add(-p.tolerance).Before(exp.Time) {
				return exp.Time.Add(p.tolerance), true
			}
		}
	}

	return time.Time{}, false
}
