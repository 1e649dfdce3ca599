package jwt

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingKey is returned when neither Key nor VerifyKeys is configured.
	ErrMissingKey = errors.New("verification key required")
	// ErrUnsupportedKey is returned for key values of an unknown type.
	ErrUnsupportedKey = errors.New("unsupported verification key type")
	// ErrConflictingOptions is returned when RequireExpiration and IgnoreExpiration are both set.
	ErrConflictingOptions = errors.New("RequireExpiration conflicts with IgnoreExpiration")
)

type keyFamily int

const (
	familyHMAC keyFamily = iota + 1
	familyRSA
	familyECDSA
	familyEd25519
)

var familyAlgorithms = map[keyFamily][]string{
	familyHMAC:    {"HS256", "HS384", "HS512"},
	familyRSA:     {"RS256", "RS384", "RS512", "PS256", "PS384", "PS512"},
	familyECDSA:   {"ES256", "ES384", "ES512"},
	familyEd25519: {"EdDSA"},
}

// Options are the verification constraints applied to every token. They are
// fixed for the lifetime of a Verifier.
type Options struct {
	// Algorithms restricts the accepted "alg" header values. Defaults to
	// every algorithm of the configured key family.
	Algorithms        []string
	Issuer            string
	Audience          string
	Subject           string
	RequireExpiration bool
	RequireIssuedAt   bool
}

// Config configures a Verifier.
type Config struct {
	Options

	// Key verifies every token unless VerifyKeys is set. Accepted values are
	// an HMAC secret ([]byte or string), ed25519.PublicKey, *rsa.PublicKey,
	// *ecdsa.PublicKey, their private counterparts, or PEM-encoded public keys.
	Key any
	// VerifyKeys selects the verification key by the token's "kid" header.
	VerifyKeys map[string]any

	Leeway           time.Duration
	IgnoreNotBefore  bool
	IgnoreExpiration bool

	// Now overrides the clock used for time-based claims.
	Now func() time.Time
}

// Verifier checks token signatures and registered claims.
//
// A Verifier is immutable after construction and safe for concurrent use.
type Verifier struct {
	key        any
	verifyKeys map[string]any
	parser     *jwt.Parser
	validator  *jwt.Validator
	ignoreNbf  bool
	ignoreExp  bool
}

// NewVerifier validates cfg and returns a Verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Leeway < 0 {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.RequireExpiration && cfg.IgnoreExpiration {
		return nil, ErrConflictingOptions
	}
	if cfg.Key == nil && len(cfg.VerifyKeys) == 0 {
		return nil, ErrMissingKey
	}

	v := &Verifier{
		ignoreNbf: cfg.IgnoreNotBefore,
		ignoreExp: cfg.IgnoreExpiration,
	}
	families := make(map[keyFamily]struct{}, 1)

	if cfg.Key != nil {
		key, family, err := normalizeKey(cfg.Key)
		if err != nil {
			return nil, err
		}
		v.key = key
		families[family] = struct{}{}
	}
	if len(cfg.VerifyKeys) > 0 {
		v.verifyKeys = make(map[string]any, len(cfg.VerifyKeys))
		for kid, raw := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			key, family, err := normalizeKey(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid verify key for kid %q: %w", kid, err)
			}
			v.verifyKeys[kid] = key
			families[family] = struct{}{}
		}
	}

	algorithms := cfg.Algorithms
	if len(algorithms) == 0 {
		for _, family := range []keyFamily{familyHMAC, familyRSA, familyECDSA, familyEd25519} {
			if _, ok := families[family]; ok {
				algorithms = append(algorithms, familyAlgorithms[family]...)
			}
		}
	}
	for _, alg := range algorithms {
		if jwt.GetSigningMethod(alg) == nil {
			return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	// Time-based claims are checked by the validator below so that
	// IgnoreNotBefore/IgnoreExpiration can hide individual claims.
	v.parser = jwt.NewParser(
		jwt.WithValidMethods(algorithms),
		jwt.WithoutClaimsValidation(),
	)

	validatorOpts := []jwt.ParserOption{jwt.WithTimeFunc(now)}
	if cfg.Leeway > 0 {
		validatorOpts = append(validatorOpts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.RequireExpiration {
		validatorOpts = append(validatorOpts, jwt.WithExpirationRequired())
	}
	if cfg.RequireIssuedAt {
		validatorOpts = append(validatorOpts, jwt.WithIssuedAt())
	}
	if cfg.Issuer != "" {
		validatorOpts = append(validatorOpts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		validatorOpts = append(validatorOpts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Subject != "" {
		validatorOpts = append(validatorOpts, jwt.WithSubject(cfg.Subject))
	}
	v.validator = jwt.NewValidator(validatorOpts...)

	return v, nil
}

// Verify checks the signature and claims of tokenStr. Errors come straight
// from golang-jwt so callers can match them with errors.Is against the
// jwt.ErrToken* sentinels.
func (v *Verifier) Verify(tokenStr string) (*Decoded, error) {
	var claims Payload
	token, err := v.parser.ParseWithClaims(tokenStr, &claims, v.keyFunc)
	if err != nil {
		return nil, err
	}

	view := validationView{Payload: claims, ignoreNotBefore: v.ignoreNbf, ignoreExpiration: v.ignoreExp}
	if err := v.validator.Validate(view); err != nil {
		return nil, fmt.Errorf("%w: %w", jwt.ErrTokenInvalidClaims, err)
	}

	return decodedFrom(token, claims), nil
}

// Decode splits and decodes tokenStr without checking its signature or
// claims.
func (v *Verifier) Decode(tokenStr string) (*Decoded, error) {
	var claims Payload
	token, parts, err := v.parser.ParseUnverified(tokenStr, &claims)
	if err != nil {
		return nil, err
	}
	if len(token.Signature) == 0 && len(parts) == 3 && parts[2] != "" {
		sig, err := v.parser.DecodeSegment(parts[2])
		if err != nil {
			return nil, fmt.Errorf("%w: could not base64 decode signature: %w", jwt.ErrTokenMalformed, err)
		}
		token.Signature = sig
	}
	return decodedFrom(token, claims), nil
}

func (v *Verifier) keyFunc(t *jwt.Token) (any, error) {
	if len(v.verifyKeys) > 0 {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			if v.key != nil {
				return v.key, nil
			}
			return nil, errors.New("missing kid")
		}
		key, ok := v.verifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return key, nil
	}
	return v.key, nil
}

func normalizeKey(key any) (any, keyFamily, error) {
	switch k := key.(type) {
	case string:
		return normalizeKey([]byte(k))
	case []byte:
		if bytes.HasPrefix(bytes.TrimSpace(k), []byte("-----BEGIN")) {
			return parsePublicKeyPEM(k)
		}
		if len(k) == 0 {
			return nil, 0, ErrMissingKey
		}
		return k, familyHMAC, nil
	case ed25519.PublicKey:
		if len(k) != ed25519.PublicKeySize {
			return nil, 0, errors.New("invalid ed25519 public key")
		}
		return k, familyEd25519, nil
	case ed25519.PrivateKey:
		if len(k) != ed25519.PrivateKeySize {
			return nil, 0, errors.New("invalid ed25519 private key")
		}
		return k.Public().(ed25519.PublicKey), familyEd25519, nil
	case *rsa.PublicKey:
		return k, familyRSA, nil
	case *rsa.PrivateKey:
		return &k.PublicKey, familyRSA, nil
	case *ecdsa.PublicKey:
		return k, familyECDSA, nil
	case *ecdsa.PrivateKey:
		return &k.PublicKey, familyECDSA, nil
	default:
		return nil, 0, ErrUnsupportedKey
	}
}

func parsePublicKeyPEM(pem []byte) (any, keyFamily, error) {
	if key, err := jwt.ParseRSAPublicKeyFromPEM(pem); err == nil {
		return key, familyRSA, nil
	}
	if key, err := jwt.ParseECPublicKeyFromPEM(pem); err == nil {
		return key, familyECDSA, nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(pem)
	if err != nil {
		return nil, 0, errors.New("invalid PEM public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, 0, errors.New("invalid ed25519 public key type")
	}
	return edKey, familyEd25519, nil
}
