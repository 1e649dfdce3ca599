package jwtcache

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"

	internalaudit "github.com/MrEthical07/jwtcache/internal/audit"
	jwtpkg "github.com/MrEthical07/jwtcache/jwt"
)

const (
	auditEventTokenVerified = "token_verified"
	auditEventTokenRejected = "token_rejected"
)

// AuditEvent is one verification decision.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

type (
	NoOpSink       = internalaudit.NoOpSink
	ChannelSink    = internalaudit.ChannelSink
	JSONWriterSink = internalaudit.JSONWriterSink
	SlogSink       = internalaudit.SlogSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

// emitAudit records a decision. Fresh verifications are always audited;
// hits only with Audit.IncludeHits.
func (c *Cache) emitAudit(token string, o *outcome, cached bool) {
	if c.audit == nil || (cached && !c.cfg.Audit.IncludeHits) {
		return
	}

	eventType := auditEventTokenVerified
	if o.err != nil {
		eventType = auditEventTokenRejected
	}
	event := internalaudit.NewEvent(eventType, c.cfg.Now())
	event.Fingerprint = internalaudit.Fingerprint(token)
	event.Success = o.err == nil
	event.Cached = cached
	if o.err != nil {
		event.Error = o.err.Error()
		event.Metadata = map[string]string{"reason": rejectReason(o.err)}
	}
	if o.decoded != nil {
		event.Subject, _ = o.decoded.Claims.GetSubject()
		event.Issuer, _ = o.decoded.Claims.GetIssuer()
	}

	c.audit.Emit(context.Background(), event)
}

// rejectReason maps golang-jwt sentinels to stable codes for dashboards.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unverifiable"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return "not_valid_yet"
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "invalid_audience"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "invalid_issuer"
	case errors.Is(err, jwt.ErrTokenInvalidSubject):
		return "invalid_subject"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "required_claim_missing"
	case errors.Is(err, jwtpkg.ErrMissingKey):
		return "missing_key"
	default:
		return "invalid"
	}
}
