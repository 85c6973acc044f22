package accountgate

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/accountgate/internal/attempts"
	"github.com/MrEthical07/accountgate/password"
)

// Config is the full engine configuration. Start from DefaultConfig or
// LoadConfigFromEnv and adjust; Build validates it.
type Config struct {
	JWT      JWTConfig      `envPrefix:"JWT_"`
	Password PasswordConfig `envPrefix:"PASSWORD_"`
	Lockout  LockoutConfig  `envPrefix:"LOCKOUT_"`
	Listing  ListingConfig  `envPrefix:"LISTING_"`
	Audit    AuditConfig    `envPrefix:"AUDIT_"`
	Metrics  MetricsConfig  `envPrefix:"METRICS_"`
	Security SecurityConfig `envPrefix:"SECURITY_"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the built-in credential issuer. It is ignored when a
// custom CredentialIssuer is supplied to the Builder.
type JWTConfig struct {
	TTL           time.Duration `env:"TTL"`
	SigningMethod string        `env:"SIGNING_METHOD"` // "ed25519" (default) or "hs256"
	PrivateKey    KeyMaterial   `env:"PRIVATE_KEY"`
	PublicKey     KeyMaterial   `env:"PUBLIC_KEY"`
	Issuer        string        `env:"ISSUER"`
	Audience      string        `env:"AUDIENCE"`
	Leeway        time.Duration `env:"LEEWAY"`
	KeyID         string        `env:"KEY_ID"`
}

// KeyMaterial is raw key bytes: a PEM block, a raw Ed25519 key or an HMAC
// secret.
type KeyMaterial []byte

// UnmarshalText lets environment variables carry key material verbatim.
func (k *KeyMaterial) UnmarshalText(text []byte) error {
	*k = append(KeyMaterial(nil), text...)
	return nil
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters. The decoy hash used for
// unknown identifiers is derived with the same parameters.
type PasswordConfig struct {
	Memory           uint32 `env:"MEMORY_KB"`
	Time             uint32 `env:"TIME"`
	Parallelism      uint8  `env:"PARALLELISM"`
	SaltLength       uint32 `env:"SALT_LENGTH"`
	KeyLength        uint32 `env:"KEY_LENGTH"`
	MaxPasswordBytes int    `env:"MAX_BYTES"`
	// UpgradeOnLogin rehashes a secret after a successful login when its
	// stored parameters are weaker than the current ones.
	UpgradeOnLogin bool `env:"UPGRADE_ON_LOGIN"`
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig is the failed-login policy.
type LockoutConfig struct {
	// MaxFailedAttempts failures lock the identifier.
	MaxFailedAttempts int `env:"MAX_FAILED_ATTEMPTS"`
	// Window is measured from the first failure of the streak.
	Window time.Duration `env:"WINDOW"`
	// Retention bounds how long an idle counter is kept. Must be >= Window.
	Retention time.Duration `env:"RETENTION"`
	// MaxTrackedIdentifiers caps the in-memory counter table; 0 is unbounded.
	// Locked identifiers are never evicted to make room. When every tracked
	// identifier is locked, new identifiers go uncounted until one expires.
	MaxTrackedIdentifiers int `env:"MAX_TRACKED_IDENTIFIERS"`
}

/*
====================================
LISTING CONFIG
====================================
*/

type ListingConfig struct {
	// MaxPageSize rejects larger pages; 0 disables the bound.
	MaxPageSize int `env:"MAX_PAGE_SIZE"`
	// CountFiltered reports the filtered total instead of the collection size.
	CountFiltered bool `env:"COUNT_FILTERED"`
}

type AuditConfig struct {
	Enabled    bool `env:"ENABLED"`
	BufferSize int  `env:"BUFFER_SIZE"`
	DropIfFull bool `env:"DROP_IF_FULL"`
}

type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED"`
	EnableLatencyHistograms bool `env:"LATENCY_HISTOGRAMS"`
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig tightens validation for production deployments.
type SecurityConfig struct {
	ProductionMode bool `env:"PRODUCTION_MODE"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

const (
	DefaultMaxFailedAttempts = 5
	DefaultLockoutWindow     = 30 * time.Minute
	DefaultPageNumber        = 1
	DefaultPageSize          = 10
)

func defaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			TTL:           time.Hour,
			SigningMethod: "ed25519",
			Issuer:        "accountgate",
			Leeway:        30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:           pw.Memory,
			Time:             pw.Time,
			Parallelism:      pw.Parallelism,
			SaltLength:       pw.SaltLength,
			KeyLength:        pw.KeyLength,
			MaxPasswordBytes: pw.MaxPasswordBytes,
		},
		Lockout: LockoutConfig{
			MaxFailedAttempts: DefaultMaxFailedAttempts,
			Window:            DefaultLockoutWindow,
			Retention:         attempts.DefaultRetention,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// DefaultConfig returns the defaults: 5 failures per 30 minute window, pages
// of at most 100 rows, 1h credentials, Argon2id at 64 MiB.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func (c Config) passwordConfig() password.Config {
	return password.Config{
		Memory:           c.Password.Memory,
		Time:             c.Password.Time,
		Parallelism:      c.Password.Parallelism,
		SaltLength:       c.Password.SaltLength,
		KeyLength:        c.Password.KeyLength,
		MaxPasswordBytes: c.Password.MaxPasswordBytes,
	}
}

// Validate checks internal consistency. Key material is validated when the
// credential issuer is constructed.
func (c *Config) Validate() error {
	if c.Lockout.MaxFailedAttempts < 1 {
		return errors.New("Lockout.MaxFailedAttempts must be >= 1")
	}
	if c.Lockout.Window <= 0 {
		return errors.New("Lockout.Window must be > 0")
	}
	if c.Lockout.Retention < c.Lockout.Window {
		return errors.New("Lockout.Retention must be >= Lockout.Window")
	}
	if c.Lockout.MaxTrackedIdentifiers < 0 {
		return errors.New("Lockout.MaxTrackedIdentifiers must be >= 0")
	}

	if c.Listing.MaxPageSize < 0 {
		return errors.New("Listing.MaxPageSize must be >= 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics.EnableLatencyHistograms requires Metrics.Enabled")
	}

	if _, err := password.New(c.passwordConfig()); err != nil {
		return fmt.Errorf("Password: %w", err)
	}

	switch c.JWT.SigningMethod {
	case "ed25519", "hs256":
	default:
		return fmt.Errorf("JWT.SigningMethod %q is not supported", c.JWT.SigningMethod)
	}
	if c.JWT.TTL <= 0 {
		return errors.New("JWT.TTL must be > 0")
	}

	if c.Security.ProductionMode {
		if c.Password.Memory < 19*1024 {
			return errors.New("ProductionMode requires Password.Memory >= 19456 KB")
		}
		if c.JWT.TTL > 24*time.Hour {
			return errors.New("ProductionMode requires JWT.TTL <= 24h")
		}
		if c.JWT.Issuer == "" {
			return errors.New("ProductionMode requires JWT.Issuer")
		}
		if c.Lockout.MaxFailedAttempts > 20 {
			return errors.New("ProductionMode requires Lockout.MaxFailedAttempts <= 20")
		}
	}
	return nil
}
