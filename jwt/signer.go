package jwt

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Signer issues tokens with a single algorithm and key. It exists for tests,
// the load generator and examples; the cache itself only verifies.
type Signer struct {
	method jwt.SigningMethod
	key    any
	keyID  string
}

// NewSigner returns a Signer for alg (for example "HS256" or "EdDSA").
// keyID, when non-empty, is written to the "kid" header.
func NewSigner(alg string, key any, keyID string) (*Signer, error) {
	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
	if key == nil {
		return nil, ErrMissingKey
	}
	if k, ok := key.(string); ok {
		key = []byte(k)
	}

	switch method.(type) {
	case *jwt.SigningMethodHMAC:
		if k, ok := key.([]byte); !ok || len(k) == 0 {
			return nil, errors.New("hmac signing requires a non-empty []byte secret")
		}
	case *jwt.SigningMethodEd25519:
		if _, ok := key.(ed25519.PrivateKey); !ok {
			return nil, errors.New("EdDSA signing requires ed25519.PrivateKey")
		}
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		if _, ok := key.(*rsa.PrivateKey); !ok {
			return nil, errors.New("RSA signing requires *rsa.PrivateKey")
		}
	case *jwt.SigningMethodECDSA:
		if _, ok := key.(*ecdsa.PrivateKey); !ok {
			return nil, errors.New("ECDSA signing requires *ecdsa.PrivateKey")
		}
	}

	return &Signer{method: method, key: key, keyID: strings.TrimSpace(keyID)}, nil
}

// Sign serializes claims as the token payload and signs it. claims may be a
// map, a struct, or any other JSON-encodable value.
func (s *Signer) Sign(claims any) (string, error) {
	token := jwt.NewWithClaims(s.method, NewPayload(claims))
	if s.keyID != "" {
		token.Header["kid"] = s.keyID
	}
	return token.SignedString(s.key)
}
