package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16

	// MinPasswordBytes is the shortest secret Hash accepts.
	MinPasswordBytes = 10
	// DefaultMaxPasswordBytes bounds secret length when Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024

	algorithmID = "argon2id"
	decoyBytes  = 32
)

var (
	// ErrPolicy is returned by Hash when the secret length is outside the accepted range.
	ErrPolicy = errors.New("password does not satisfy length policy")
	// ErrTooLong is returned by Verify when the candidate exceeds MaxPasswordBytes.
	ErrTooLong = errors.New("password exceeds maximum length")
	// ErrMalformedHash is returned when a stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Config holds Argon2id cost parameters.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultConfig returns the parameters used when the caller supplies none.
func DefaultConfig() Config {
	return Config{
		Memory:           64 * 1024,
		Time:             3,
		Parallelism:      2,
		SaltLength:       16,
		KeyLength:        32,
		MaxPasswordBytes: DefaultMaxPasswordBytes,
	}
}

// Hasher hashes and verifies secrets. It is immutable after construction and
// safe for concurrent use.
type Hasher struct {
	config Config
}

// New validates cfg and returns a Hasher.
func New(cfg Config) (*Hasher, error) {
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Hasher{config: cfg}, nil
}

// Config returns the effective parameters.
func (h *Hasher) Config() Config {
	return h.config
}

// Hash derives a PHC-encoded Argon2id hash for secret. Secrets are processed as
// raw bytes with no Unicode normalization.
func (h *Hasher) Hash(secret string) (string, error) {
	if len(secret) < MinPasswordBytes || len(secret) > h.config.MaxPasswordBytes {
		return "", ErrPolicy
	}
	return h.derive([]byte(secret))
}

// Decoy returns a hash of random bytes with the configured cost. Nothing can
// verify against it except by chance.
func (h *Hasher) Decoy() (string, error) {
	secret := make([]byte, decoyBytes)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return "", err
	}
	return h.derive(secret)
}

func (h *Hasher) derive(secret []byte) (string, error) {
	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(secret, salt, h.config.Time, h.config.Memory, h.config.Parallelism, h.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether secret matches encodedHash. The empty secret is
// compared like any other value.
func (h *Hasher) Verify(secret, encodedHash string) (bool, error) {
	if len(secret) > h.config.MaxPasswordBytes {
		return false, ErrTooLong
	}

	p, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(secret), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(computed, p.key) == 1, nil
}

// NeedsRehash reports whether encodedHash was produced with weaker parameters
// than the current configuration.
func (h *Hasher) NeedsRehash(encodedHash string) (bool, error) {
	p, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	switch {
	case h.config.Memory > p.memory,
		h.config.Time > p.time,
		h.config.Parallelism > p.parallelism,
		int(h.config.KeyLength) != len(p.key):
		return true, nil
	}
	return false, nil
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Memory < minMemoryKB:
		return errors.New("password memory must be >= 8192 KB")
	case cfg.Time < minTimeCost:
		return errors.New("password time must be >= 1")
	case cfg.Parallelism < minParallelism:
		return errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return errors.New("password salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return errors.New("password key length must be >= 16")
	case cfg.MaxPasswordBytes < MinPasswordBytes:
		return fmt.Errorf("password max bytes must be >= %d", MinPasswordBytes)
	}
	return nil
}
