package accountgate

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/accountgate/internal/attempts"
	internalaudit "github.com/MrEthical07/accountgate/internal/audit"
	internalmetrics "github.com/MrEthical07/accountgate/internal/metrics"
	"github.com/MrEthical07/accountgate/jwt"
	"github.com/MrEthical07/accountgate/password"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config

	records  RecordStore
	attempts AttemptStore
	redis    redis.UniversalClient
	issuer   CredentialIssuer

	auditSink AuditSink
	logger    *zerolog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. Build validates it.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRecordStore sets the account store. If it also implements
// AccountStore, account management operations are enabled.
func (b *Builder) WithRecordStore(store RecordStore) *Builder {
	b.records = store
	return b
}

// WithAttemptStore sets a custom failure counter store. It takes precedence
// over WithRedis.
func (b *Builder) WithAttemptStore(store AttemptStore) *Builder {
	b.attempts = store
	return b
}

// WithRedis shares failure counters through Redis. Without it (and without
// WithAttemptStore) counters are kept in process memory.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialIssuer replaces the built-in JWT issuer.
func (b *Builder) WithCredentialIssuer(issuer CredentialIssuer) *Builder {
	b.issuer = issuer
	return b
}

// WithAuditSink sets where audit events go. Events are only produced when
// Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for warnings about degraded backends. The
// default discards everything.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithClock overrides time.Now, mainly for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles login and listing latency histograms. It
// requires metrics to be enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine. It derives
// the decoy hash once, which costs one Argon2id evaluation.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.records == nil {
		return nil, errors.New("record store required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	engine := &Engine{
		config:  cfg,
		records: b.records,
		now:     now,
		newID:   newAccountID,
		logger:  logger.With().Str("component", "accountgate").Logger(),
	}
	if as, ok := b.records.(AccountStore); ok {
		engine.accounts = as
	}

	switch {
	case b.attempts != nil:
		engine.attempts = b.attempts
	case b.redis != nil:
		engine.attempts = attempts.NewRedisStore(b.redis, cfg.Lockout.Retention)
	default:
		engine.attempts = attempts.NewMemoryStore(attempts.MemoryConfig{
			Retention:  cfg.Lockout.Retention,
			MaxEntries: cfg.Lockout.MaxTrackedIdentifiers,
			Threshold:  cfg.Lockout.MaxFailedAttempts,
			Window:     cfg.Lockout.Window,
			Now:        now,
		})
	}

	hasher, err := password.New(cfg.passwordConfig())
	if err != nil {
		return nil, err
	}
	decoy, err := hasher.Decoy()
	if err != nil {
		return nil, fmt.Errorf("derive decoy hash: %w", err)
	}
	engine.hasher = hasher
	engine.decoyHash = decoy

	if b.issuer != nil {
		engine.issuer = b.issuer
	} else {
		jm, err := jwt.NewManager(jwt.Config{
			TTL:           cfg.JWT.TTL,
			SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
			PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
			PublicKey:     cloneBytes(cfg.JWT.PublicKey),
			Issuer:        cfg.JWT.Issuer,
			Audience:      cfg.JWT.Audience,
			Leeway:        cfg.JWT.Leeway,
			KeyID:         cfg.JWT.KeyID,
			Now:           now,
		})
		if err != nil {
			return nil, fmt.Errorf("JWT: %w", err)
		}
		engine.jwtManager = jm
		engine.issuer = jm
	}

	engine.metrics = internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Metrics.Enabled,
		EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
	})
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true
	return engine, nil
}

func newAccountID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewMemoryAttemptStore returns the in-process counter store Build uses by
// default, configured from cfg.
func NewMemoryAttemptStore(cfg LockoutConfig) AttemptStore {
	return attempts.NewMemoryStore(attempts.MemoryConfig{
		Retention:  cfg.Retention,
		MaxEntries: cfg.MaxTrackedIdentifiers,
		Threshold:  cfg.MaxFailedAttempts,
		Window:     cfg.Window,
	})
}

// NewRedisAttemptStore returns the shared counter store used by WithRedis.
func NewRedisAttemptStore(client redis.UniversalClient, retention time.Duration) AttemptStore {
	return attempts.NewRedisStore(client, retention)
}
