package password

import (
	"errors"
	"strings"
	"testing"
)

func testConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T, cfg Config) *Hasher {
	t.Helper()
	h, err := New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t, testConfig())

	hash, err := h.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := h.Verify("correct-horse-battery", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected verification to succeed")
	}

	ok, err = h.Verify("wrong-horse-battery", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong secret to fail")
	}
}

func TestVerifyEmptySecretIsCompared(t *testing.T) {
	h := newTestHasher(t, testConfig())
	hash, err := h.Hash("non-empty-secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := h.Verify("", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected empty secret not to match")
	}
}

func TestVerifyAcceptsPaddedEncoding(t *testing.T) {
	// Generated with padded base64 segments, as some argon2 libraries emit.
	h := newTestHasher(t, testConfig())
	hash, err := h.Hash("padded-encoding-secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	parts := strings.Split(hash, "$")
	parts[4] += strings.Repeat("=", (4-len(parts[4])%4)%4)
	parts[5] += strings.Repeat("=", (4-len(parts[5])%4)%4)
	padded := strings.Join(parts, "$")

	ok, err := h.Verify("padded-encoding-secret", padded)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected padded hash to verify")
	}
}

func TestDecoyMatchesCostAndRejectsSecrets(t *testing.T) {
	h := newTestHasher(t, testConfig())

	decoy, err := h.Decoy()
	if err != nil {
		t.Fatalf("Decoy error: %v", err)
	}
	real, err := h.Hash("some-real-secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	decoyParts := strings.Split(decoy, "$")
	realParts := strings.Split(real, "$")
	if decoyParts[3] != realParts[3] {
		t.Fatalf("decoy params %q differ from real params %q", decoyParts[3], realParts[3])
	}
	if len(decoyParts[5]) != len(realParts[5]) {
		t.Fatal("decoy key length differs from real key length")
	}

	for _, candidate := range []string{"", "some-real-secret", "password123"} {
		ok, err := h.Verify(candidate, decoy)
		if err != nil {
			t.Fatalf("Verify(decoy) error: %v", err)
		}
		if ok {
			t.Fatalf("decoy matched %q", candidate)
		}
	}
}

func TestHashLengthPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPasswordBytes = 64
	h := newTestHasher(t, cfg)

	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{name: "empty", secret: "", wantErr: true},
		{name: "short", secret: "short", wantErr: true},
		{name: "minimum", secret: strings.Repeat("a", MinPasswordBytes)},
		{name: "maximum", secret: strings.Repeat("b", 64)},
		{name: "too long", secret: strings.Repeat("c", 65), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Hash(tt.secret)
			if tt.wantErr && !errors.Is(err, ErrPolicy) {
				t.Fatalf("expected ErrPolicy, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestVerifyTooLongRejected(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPasswordBytes = 64
	h := newTestHasher(t, cfg)
	hash, err := h.Hash("valid-password-123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if _, err := h.Verify(strings.Repeat("c", 65), hash); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}

func TestDefaultMaxPasswordBytesApplied(t *testing.T) {
	h := newTestHasher(t, testConfig())
	if h.Config().MaxPasswordBytes != DefaultMaxPasswordBytes {
		t.Fatalf("expected default max %d, got %d", DefaultMaxPasswordBytes, h.Config().MaxPasswordBytes)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newTestHasher(t, testConfig())
	good, err := h.Hash("malformed-base-secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	cases := map[string]string{
		"garbage":       "not-a-phc-hash",
		"wrong algo":    strings.Replace(good, "argon2id", "argon2i", 1),
		"wrong version": strings.Replace(good, "$v=19$", "$v=18$", 1),
		"low memory":    strings.Replace(good, "m=8192", "m=1024", 1),
		"extra param":   strings.Replace(good, "p=1", "p=1,x=2", 1),
	}
	for name, hash := range cases {
		if _, err := h.Verify("malformed-base-secret", hash); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("%s: expected ErrMalformedHash, got %v", name, err)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := newTestHasher(t, testConfig())
	hash, err := weak.Hash("rehash-candidate")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	stronger := testConfig()
	stronger.Time = 2
	strong := newTestHasher(t, stronger)

	if need, err := strong.NeedsRehash(hash); err != nil || !need {
		t.Fatalf("expected rehash for weaker parameters, need=%v err=%v", need, err)
	}
	if need, err := weak.NeedsRehash(hash); err != nil || need {
		t.Fatalf("expected no rehash for current parameters, need=%v err=%v", need, err)
	}
}

func TestNewRejectsWeakConfig(t *testing.T) {
	cfg := testConfig()
	cfg.SaltLength = 8
	if _, err := New(cfg); err == nil {
		t.Fatal("expected short salt to be rejected")
	}
}
