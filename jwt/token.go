package jwt

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

// Decoded is the envelope of a token: its header, its claims and the raw
// signature bytes. Decoded values are shared between callers and must be
// treated as read-only.
type Decoded struct {
	Header    map[string]any `json:"header"`
	Claims    Payload        `json:"payload"`
	Signature []byte         `json:"signature"`
}

// Payload is the claims section of a token.
//
// Most tokens carry a JSON object, exposed through [Payload.Map]. Any other
// JSON value (a bare string, a number, an array) is preserved verbatim and
// reports no registered claims.
type Payload struct {
	value any
}

// NewPayload wraps v for signing. Plain maps are normalized to
// jwt.MapClaims so registered claims can be read back.
func NewPayload(v any) Payload {
	switch m := v.(type) {
	case map[string]any:
		return Payload{value: jwt.MapClaims(m)}
	case Payload:
		return m
	default:
		return Payload{value: v}
	}
}

// Value returns the decoded JSON value.
func (p Payload) Value() any {
	return p.value
}

// Map returns the claims as a map when the payload is a JSON object.
func (p Payload) Map() (jwt.MapClaims, bool) {
	m, ok := p.value.(jwt.MapClaims)
	return m, ok
}

// IsObject reports whether the payload is a JSON object.
func (p Payload) IsObject() bool {
	_, ok := p.value.(jwt.MapClaims)
	return ok
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if m, ok := p.value.(jwt.MapClaims); ok {
		return json.Marshal(map[string]any(m))
	}
	return json.Marshal(p.value)
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if m, ok := v.(map[string]any); ok {
		p.value = jwt.MapClaims(m)
		return nil
	}
	p.value = v
	return nil
}

// GetExpirationTime implements jwt.Claims.
func (p Payload) GetExpirationTime() (*jwt.NumericDate, error) {
	if m, ok := p.Map(); ok {
		return m.GetExpirationTime()
	}
	return nil, nil
}

// GetNotBefore implements jwt.Claims.
func (p Payload) GetNotBefore() (*jwt.NumericDate, error) {
	if m, ok := p.Map(); ok {
		return m.GetNotBefore()
	}
	return nil, nil
}

// GetIssuedAt implements jwt.Claims.
func (p Payload) GetIssuedAt() (*jwt.NumericDate, error) {
	if m, ok := p.Map(); ok {
		return m.GetIssuedAt()
	}
	return nil, nil
}

// GetIssuer implements jwt.Claims.
func (p Payload) GetIssuer() (string, error) {
	if m, ok := p.Map(); ok {
		return m.GetIssuer()
	}
	return "", nil
}

// GetSubject implements jwt.Claims.
func (p Payload) GetSubject() (string, error) {
	if m, ok := p.Map(); ok {
		return m.GetSubject()
	}
	return "", nil
}

// GetAudience implements jwt.Claims.
func (p Payload) GetAudience() (jwt.ClaimStrings, error) {
	if m, ok := p.Map(); ok {
		return m.GetAudience()
	}
	return nil, nil
}

// validationView hides nbf/exp from the claims validator when the
// verifier is configured to ignore them.
type validationView struct {
	Payload
	ignoreNotBefore  bool
	ignoreExpiration bool
}

func (v validationView) GetExpirationTime() (*jwt.NumericDate, error) {
	if v.ignoreExpiration {
		return nil, nil
	}
	return v.Payload.GetExpirationTime()
}

func (v validationView) GetNotBefore() (*jwt.NumericDate, error) {
	if v.ignoreNotBefore {
		return nil, nil
	}
	return v.Payload.GetNotBefore()
}

func decodedFrom(token *jwt.Token, claims Payload) *Decoded {
	header := make(map[string]any, len(token.Header))
	for k, v := range token.Header {
		header[k] = v
	}
	return &Decoded{
		Header:    header,
		Claims:    claims,
		Signature: token.Signature,
	}
}
