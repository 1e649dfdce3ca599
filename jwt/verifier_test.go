package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("secret-secret-secret-secret-secret")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func mustSign(t *testing.T, alg string, key any, claims any) string {
	t.Helper()
	s, err := NewSigner(alg, key, "")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	tok, err := s.Sign(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestVerifyHMACRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v, err := NewVerifier(Config{Key: testSecret, Now: fixedClock(now)})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	tok := mustSign(t, "HS256", testSecret, map[string]any{"sub": "u1", "exp": now.Add(time.Minute).Unix()})
	decoded, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	claims, ok := decoded.Claims.Map()
	if !ok {
		t.Fatal("expected object claims")
	}
	if claims["sub"] != "u1" {
		t.Fatalf("unexpected sub %v", claims["sub"])
	}
	if decoded.Header["alg"] != "HS256" {
		t.Fatalf("unexpected alg header %v", decoded.Header["alg"])
	}
	if len(decoded.Signature) == 0 {
		t.Fatal("expected signature bytes")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	v, err := NewVerifier(Config{Key: testSecret})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	tok := mustSign(t, "HS256", []byte("another-secret-another-secret"), map[string]any{"sub": "u1"})
	_, err = v.Verify(tok)
	if !errors.Is(err, gjwt.ErrTokenSignatureInvalid) {
		t.Fatalf("expected signature invalid, got %v", err)
	}

	// Decode does not care about the key.
	decoded, err := v.Decode(tok)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims, _ := decoded.Claims.Map(); claims["sub"] != "u1" {
		t.Fatalf("unexpected decoded claims %v", decoded.Claims.Value())
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	v, err := NewVerifier(Config{Key: pub})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	tok := mustSign(t, "HS256", testSecret, map[string]any{"sub": "u1"})
	if _, err := v.Verify(tok); !errors.Is(err, gjwt.ErrTokenSignatureInvalid) {
		t.Fatalf("expected wrong algorithm to be rejected, got %v", err)
	}
}

func TestVerifyTimeClaimsFollowInjectedClock(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := now
	v, err := NewVerifier(Config{Key: testSecret, Now: func() time.Time { return clock }})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	tok := mustSign(t, "HS256", testSecret, map[string]any{
		"nbf": now.Add(10 * time.Second).Unix(),
		"exp": now.Add(100 * time.Second).Unix(),
	})

	if _, err := v.Verify(tok); !errors.Is(err, gjwt.ErrTokenNotValidYet) {
		t.Fatalf("expected not-yet-valid, got %v", err)
	}

	clock = now.Add(20 * time.Second)
	if _, err := v.Verify(tok); err != nil {
		t.Fatalf("expected valid inside window: %v", err)
	}

	clock = now.Add(101 * time.Second)
	_, err = v.Verify(tok)
	if !errors.Is(err, gjwt.ErrTokenExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if !errors.Is(err, gjwt.ErrTokenInvalidClaims) {
		t.Fatalf("expected invalid claims wrapper, got %v", err)
	}
}

func TestVerifyLeewayAndIgnoreFlags(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	expired := mustSign(t, "HS256", testSecret, map[string]any{"exp": now.Add(-15 * time.Second).Unix()})
	notYet := mustSign(t, "HS256", testSecret, map[string]any{"nbf": now.Add(time.Hour).Unix()})

	lenient, err := NewVerifier(Config{Key: testSecret, Leeway: 30 * time.Second, Now: fixedClock(now)})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if _, err := lenient.Verify(expired); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}

	ignoring, err := NewVerifier(Config{
		Key:              testSecret,
		IgnoreExpiration: true,
		IgnoreNotBefore:  true,
		Now:              fixedClock(now.Add(time.Minute)),
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if _, err := ignoring.Verify(expired); err != nil {
		t.Fatalf("expected expiration to be ignored: %v", err)
	}
	if _, err := ignoring.Verify(notYet); err != nil {
		t.Fatalf("expected nbf to be ignored: %v", err)
	}
}

func TestVerifyIssuerAudience(t *testing.T) {
	v, err := NewVerifier(Config{Key: testSecret, Options: Options{Issuer: "auth", Audience: "api"}})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	good := mustSign(t, "HS256", testSecret, map[string]any{"iss": "auth", "aud": "api"})
	if _, err := v.Verify(good); err != nil {
		t.Fatalf("expected valid token: %v", err)
	}

	badIssuer := mustSign(t, "HS256", testSecret, map[string]any{"iss": "other", "aud": "api"})
	if _, err := v.Verify(badIssuer); !errors.Is(err, gjwt.ErrTokenInvalidIssuer) {
		t.Fatalf("expected invalid issuer, got %v", err)
	}

	badAudience := mustSign(t, "HS256", testSecret, map[string]any{"iss": "auth", "aud": "other-api"})
	if _, err := v.Verify(badAudience); !errors.Is(err, gjwt.ErrTokenInvalidAudience) {
		t.Fatalf("expected invalid audience, got %v", err)
	}
}

func TestVerifyScalarPayload(t *testing.T) {
	v, err := NewVerifier(Config{Key: testSecret})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	tok := mustSign(t, "HS256", testSecret, "hello")
	decoded, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("verify scalar payload: %v", err)
	}
	if decoded.Claims.IsObject() {
		t.Fatal("expected non-object payload")
	}
	if decoded.Claims.Value() != "hello" {
		t.Fatalf("unexpected payload %v", decoded.Claims.Value())
	}
}

func TestVerifyKeyIDSelection(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, priv2 := newEdKeys(t)
	v, err := NewVerifier(Config{VerifyKeys: map[string]any{"k1": pub1, "k2": pub2}})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	s2, err := NewSigner("EdDSA", priv2, "k2")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	tok, err := s2.Sign(map[string]any{"sub": "u"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Verify(tok); err != nil {
		t.Fatalf("expected kid k2 to verify: %v", err)
	}

	wrong, err := NewSigner("EdDSA", priv1, "k2")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	tok, _ = wrong.Sign(map[string]any{"sub": "u"})
	if _, err := v.Verify(tok); err == nil {
		t.Fatal("expected key mismatch for kid k2")
	}

	unknown, _ := NewSigner("EdDSA", priv1, "k9")
	tok, _ = unknown.Sign(map[string]any{"sub": "u"})
	if _, err := v.Verify(tok); err == nil {
		t.Fatal("expected unknown kid failure")
	}
}

func TestDecodeMalformed(t *testing.T) {
	v, err := NewVerifier(Config{Key: testSecret})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if _, err := v.Decode("not-a-token"); !errors.Is(err, gjwt.ErrTokenMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
}

func TestNewVerifierRejectsBadConfig(t *testing.T) {
	if _, err := NewVerifier(Config{}); !errors.Is(err, ErrMissingKey) {
		t.Fatalf("expected missing key, got %v", err)
	}
	if _, err := NewVerifier(Config{Key: 42}); !errors.Is(err, ErrUnsupportedKey) {
		t.Fatalf("expected unsupported key, got %v", err)
	}
	if _, err := NewVerifier(Config{Key: testSecret, Leeway: -time.Second}); err == nil {
		t.Fatal("expected negative leeway rejection")
	}
	if _, err := NewVerifier(Config{
		Key:              testSecret,
		Options:          Options{RequireExpiration: true},
		IgnoreExpiration: true,
	}); !errors.Is(err, ErrConflictingOptions) {
		t.Fatalf("expected conflicting options, got %v", err)
	}
	if _, err := NewVerifier(Config{Key: testSecret, Options: Options{Algorithms: []string{"XX999"}}}); err == nil {
		t.Fatal("expected unknown algorithm rejection")
	}
}
