package accountgate

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/accountgate/internal/attempts"
	internalaudit "github.com/MrEthical07/accountgate/internal/audit"
	"github.com/MrEthical07/accountgate/internal/flows"
	internalmetrics "github.com/MrEthical07/accountgate/internal/metrics"
	"github.com/MrEthical07/accountgate/jwt"
	"github.com/MrEthical07/accountgate/password"
)

// Engine guards logins against repeated failures and serves paginated
// account listings. It is safe for concurrent use.
type Engine struct {
	config Config

	records  RecordStore
	accounts AccountStore
	attempts AttemptStore

	issuer     CredentialIssuer
	jwtManager *jwt.Manager
	hasher     *password.Hasher
	decoyHash  string

	audit   *internalaudit.Dispatcher
	metrics *internalmetrics.Metrics
	logger  zerolog.Logger

	now   func() time.Time
	newID func() (string, error)
}

// Login authenticates identifier with secret.
//
// After Lockout.MaxFailedAttempts failures within Lockout.Window of the first
// one, Login returns ErrLoginRateLimited without comparing anything until the
// window has passed. Wrong secrets and unknown identifiers both yield
// ErrInvalidCredentials and cost one Argon2id verification.
func (e *Engine) Login(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observe(internalmetrics.LoginLatency, start)

	res, err := flows.RunLogin(ctx, identifier, secret, e.loginDeps())
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Email:  res.Account.Identifier,
		Name:   res.Account.Name,
		UserID: res.Account.ID,
		Token:  res.Credential,
	}, nil
}

func (e *Engine) loginDeps() flows.LoginDeps {
	deps := flows.LoginDeps{
		MaxFailedAttempts: e.config.Lockout.MaxFailedAttempts,
		LockoutWindow:     e.config.Lockout.Window,
		DecoyHash:         e.decoyHash,
		RehashOnLogin:     e.config.Password.UpgradeOnLogin,
		Now:               e.now,
		FindAccount: func(ctx context.Context, identifier string) (flows.AccountRecord, bool, error) {
			a, found, err := e.records.FindAccountByIdentifier(ctx, identifier)
			return toRecord(a), found, err
		},
		GetAttempts: func(ctx context.Context, identifier string) (flows.AttemptRecord, bool, error) {
			c, found, err := e.attempts.Get(ctx, identifier)
			return toAttemptRecord(c), found, err
		},
		IncrementFailed: func(ctx context.Context, identifier string, at time.Time) (flows.AttemptRecord, error) {
			c, err := e.attempts.Increment(ctx, identifier, at)
			return toAttemptRecord(c), err
		},
		ClearAttempts:   e.attempts.Clear,
		VerifySecret:    e.hasher.Verify,
		NeedsRehash:     e.hasher.NeedsRehash,
		HashSecret:      e.hasher.Hash,
		IssueCredential: e.issuer.IssueCredential,
		MetricInc:       e.metricInc,
		EmitAudit:       e.auditFunc,
		Warn:            e.warn,
		Metrics: flows.LoginMetrics{
			Success:           int(internalmetrics.LoginSuccess),
			Failure:           int(internalmetrics.LoginFailure),
			RateLimited:       int(internalmetrics.LoginRateLimited),
			LockoutExpired:    int(internalmetrics.LoginLockoutExpired),
			UnknownIdentifier: int(internalmetrics.LoginUnknownIdentifier),
			AttemptStoreError: int(internalmetrics.AttemptStoreError),
		},
		Events: flows.LoginEvents{
			Success:        AuditLoginSuccess,
			Failure:        AuditLoginFailure,
			RateLimited:    AuditLoginRateLimited,
			LockoutExpired: AuditLockoutExpired,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:          ErrEngineNotReady,
			InvalidCredentials:      ErrInvalidCredentials,
			RateLimited:             ErrLoginRateLimited,
			StoreUnavailable:        ErrStoreUnavailable,
			AttemptStoreUnavailable: ErrAttemptStoreUnavailable,
			CredentialIssue:         ErrCredentialIssue,
		},
	}
	if e.accounts != nil {
		deps.UpdateSecret = e.accounts.UpdateSecretHash
	}
	return deps
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports audit events that never reached the sink.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the current counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id int) {
	e.metrics.Inc(MetricID(id))
}

func (e *Engine) observe(id MetricID, start time.Time) {
	if e.metrics == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

func (e *Engine) auditFunc(ctx context.Context, event string, success bool, accountID, identifier string, err error, metadata func() map[string]string) {
	e.emitAudit(ctx, event, success, accountID, identifier, err, metadata)
}

func toRecord(a Account) flows.AccountRecord {
	return flows.AccountRecord{
		ID:         a.ID,
		Identifier: a.Identifier,
		Name:       a.Name,
		SecretHash: a.SecretHash,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func fromRecord(r flows.AccountRecord) Account {
	return Account{
		ID:         r.ID,
		Identifier: r.Identifier,
		Name:       r.Name,
		SecretHash: r.SecretHash,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func toAttemptRecord(c attempts.Counter) flows.AttemptRecord {
	return flows.AttemptRecord{Count: c.Count, FirstFailureAt: c.FirstFailureAt}
}
