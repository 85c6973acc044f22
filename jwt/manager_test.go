package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func signClaims(t *testing.T, method gjwt.SigningMethod, key any, claims Claims, kid string) string {
	t.Helper()
	tok := gjwt.NewWithClaims(method, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestIssueAndParseCredential(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "accountgate",
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	token, err := m.IssueCredential("john@example.com", "acc-1")
	if err != nil {
		t.Fatalf("IssueCredential error: %v", err)
	}
	claims, err := m.ParseCredential(token)
	if err != nil {
		t.Fatalf("ParseCredential error: %v", err)
	}
	if claims.AccountID() != "acc-1" || claims.Email != "john@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "accountgate" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
}

func TestHS256RequiresLongSecret(t *testing.T) {
	if _, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("short")}); err == nil {
		t.Fatal("expected short hs256 secret to be rejected")
	}

	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte(strings.Repeat("k", 32))})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	token, err := m.IssueCredential("a@example.com", "acc-2")
	if err != nil {
		t.Fatalf("IssueCredential error: %v", err)
	}
	if _, err := m.ParseCredential(token); err != nil {
		t.Fatalf("ParseCredential error: %v", err)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	now := time.Now()
	claims := Claims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "acc",
		IssuedAt:  gjwt.NewNumericDate(now),
		ExpiresAt: gjwt.NewNumericDate(now.Add(time.Minute)),
	}}
	token := signClaims(t, gjwt.SigningMethodHS256, []byte(strings.Repeat("s", 32)), claims, "")
	if _, err := m.ParseCredential(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestVerifyOnlyManagerCannotIssue(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if _, err := m.IssueCredential("a@example.com", "acc"); err == nil {
		t.Fatal("expected issue without private key to fail")
	}
}

func TestParseIssuerAudienceAndLeeway(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "accountgate",
		Audience:      "api",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	now := time.Now()
	build := func(iss, aud string, exp time.Duration) Claims {
		return Claims{RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "acc",
			Issuer:    iss,
			Audience:  gjwt.ClaimStrings{aud},
			IssuedAt:  gjwt.NewNumericDate(now.Add(-3 * time.Minute)),
			ExpiresAt: gjwt.NewNumericDate(now.Add(exp)),
		}}
	}

	tests := []struct {
		name   string
		claims Claims
		ok     bool
	}{
		{name: "valid", claims: build("accountgate", "api", time.Minute), ok: true},
		{name: "wrong issuer", claims: build("other", "api", time.Minute)},
		{name: "wrong audience", claims: build("accountgate", "other-api", time.Minute)},
		{name: "expired within leeway", claims: build("accountgate", "api", -15*time.Second), ok: true},
		{name: "expired", claims: build("accountgate", "api", -2*time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := signClaims(t, gjwt.SigningMethodEdDSA, priv, tt.claims, "")
			_, err := m.ParseCredential(token)
			if tt.ok && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected failure")
			}
		})
	}
}

func TestParseUnknownKidFails(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub},
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	now := time.Now()
	claims := Claims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "acc",
		IssuedAt:  gjwt.NewNumericDate(now),
		ExpiresAt: gjwt.NewNumericDate(now.Add(time.Minute)),
	}}
	if _, err := m.ParseCredential(signClaims(t, gjwt.SigningMethodEdDSA, priv, claims, "k2")); err == nil {
		t.Fatal("expected unknown kid failure")
	}
	if _, err := m.ParseCredential(signClaims(t, gjwt.SigningMethodEdDSA, priv, claims, "k1")); err != nil {
		t.Fatalf("expected known kid to pass: %v", err)
	}
}

func TestParseRejectsMissingSubject(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	now := time.Now()
	claims := Claims{Email: "a@example.com", RegisteredClaims: gjwt.RegisteredClaims{
		IssuedAt:  gjwt.NewNumericDate(now),
		ExpiresAt: gjwt.NewNumericDate(now.Add(time.Minute)),
	}}
	if _, err := m.ParseCredential(signClaims(t, gjwt.SigningMethodEdDSA, priv, claims, "")); err == nil {
		t.Fatal("expected credential without subject to fail")
	}
}

func TestIssueUsesInjectedClock(t *testing.T) {
	pub, priv := newEdKeys(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m, err := NewManager(Config{
		TTL:           15 * time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Now:           func() time.Time { return fixed },
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	token, err := m.IssueCredential("a@example.com", "acc")
	if err != nil {
		t.Fatalf("IssueCredential error: %v", err)
	}
	claims, err := m.ParseCredential(token)
	if err != nil {
		t.Fatalf("ParseCredential error: %v", err)
	}
	if !claims.ExpiresAt.Equal(fixed.Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", claims.ExpiresAt)
	}
}
