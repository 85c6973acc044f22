package flows

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// AttemptRecord is the flow-local failure counter.
type AttemptRecord struct {
	Count          int
	FirstFailureAt time.Time
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Account    AccountRecord
	Credential string
}

// LoginMetrics carries metric ids reported by the login flow.
type LoginMetrics struct {
	Success           int
	Failure           int
	RateLimited       int
	LockoutExpired    int
	UnknownIdentifier int
	AttemptStoreError int
}

// LoginEvents carries audit event names reported by the login flow.
type LoginEvents struct {
	Success        string
	Failure        string
	RateLimited    string
	LockoutExpired string
}

// LoginErrors carries the sentinel errors returned by the login flow.
type LoginErrors struct {
	EngineNotReady          error
	InvalidCredentials      error
	RateLimited             error
	StoreUnavailable        error
	AttemptStoreUnavailable error
	CredentialIssue         error
}

// LoginDeps captures everything the login governor needs.
type LoginDeps struct {
	MaxFailedAttempts int
	LockoutWindow     time.Duration
	// DecoyHash is verified when the identifier has no account.
	DecoyHash       string
	RehashOnLogin   bool
	Now             func() time.Time
	FindAccount     func(context.Context, string) (AccountRecord, bool, error)
	GetAttempts     func(context.Context, string) (AttemptRecord, bool, error)
	IncrementFailed func(context.Context, string, time.Time) (AttemptRecord, error)
	ClearAttempts   func(context.Context, string) error
	VerifySecret    func(secret, hash string) (bool, error)
	NeedsRehash     func(hash string) (bool, error)
	HashSecret      func(secret string) (string, error)
	UpdateSecret    func(ctx context.Context, accountID, hash string, at time.Time) error
	IssueCredential func(identifier, accountID string) (string, error)
	MetricInc       func(int)
	EmitAudit       AuditFunc
	Warn            WarnFunc
	Metrics         LoginMetrics
	Events          LoginEvents
	Errors          LoginErrors
}

// RunLogin authenticates identifier with secret under the failed-attempt
// lockout policy.
//
// The stored hash, or the decoy hash when the identifier is unknown, is
// always verified unless the identifier is locked out, in which case nothing
// is compared and the counter is left untouched.
func RunLogin(ctx context.Context, identifier, secret string, deps LoginDeps) (*LoginResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noAudit
	}
	if deps.Warn == nil {
		deps.Warn = noWarn
	}
	if deps.FindAccount == nil ||
		deps.GetAttempts == nil ||
		deps.IncrementFailed == nil ||
		deps.ClearAttempts == nil ||
		deps.VerifySecret == nil ||
		deps.IssueCredential == nil ||
		deps.DecoyHash == "" ||
		deps.MaxFailedAttempts < 1 ||
		deps.LockoutWindow <= 0 {
		return nil, deps.Errors.EngineNotReady
	}

	account, found, err := deps.FindAccount(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", deps.Errors.StoreUnavailable, err)
	}

	now := deps.Now()
	attempts, tracked, err := deps.GetAttempts(ctx, identifier)
	if err != nil {
		deps.MetricInc(deps.Metrics.AttemptStoreError)
		return nil, fmt.Errorf("%w: %w", deps.Errors.AttemptStoreUnavailable, err)
	}
	if tracked && attempts.Count >= deps.MaxFailedAttempts {
		if now.Sub(attempts.FirstFailureAt) < deps.LockoutWindow {
			deps.MetricInc(deps.Metrics.RateLimited)
			deps.EmitAudit(ctx, deps.Events.RateLimited, false, account.ID, identifier, deps.Errors.RateLimited, func() map[string]string {
				return map[string]string{"failures": strconv.Itoa(attempts.Count)}
			})
			return nil, deps.Errors.RateLimited
		}

		if err := deps.ClearAttempts(ctx, identifier); err != nil {
			deps.MetricInc(deps.Metrics.AttemptStoreError)
			return nil, fmt.Errorf("%w: %w", deps.Errors.AttemptStoreUnavailable, err)
		}
		deps.MetricInc(deps.Metrics.LockoutExpired)
		deps.EmitAudit(ctx, deps.Events.LockoutExpired, true, account.ID, identifier, nil, nil)
	}

	hash := deps.DecoyHash
	if found {
		hash = account.SecretHash
	} else {
		deps.MetricInc(deps.Metrics.UnknownIdentifier)
	}

	ok, err := deps.VerifySecret(secret, hash)
	if err != nil {
		deps.Warn(ctx, "secret verification failed", err)
		ok = false
	}

	if !found || !ok {
		return nil, recordFailure(ctx, identifier, account.ID, now, deps)
	}

	if err := deps.ClearAttempts(ctx, identifier); err != nil {
		deps.MetricInc(deps.Metrics.AttemptStoreError)
		deps.Warn(ctx, "clear attempt counter after login failed", err)
	}

	if deps.RehashOnLogin {
		rehash(ctx, account, secret, now, deps)
	}

	credential, err := deps.IssueCredential(account.Identifier, account.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", deps.Errors.CredentialIssue, err)
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, account.ID, identifier, nil, nil)

	return &LoginResult{Account: account, Credential: credential}, nil
}

// recordFailure extends the failure streak. A counter write failure is logged
// and the caller still sees invalid credentials.
func recordFailure(ctx context.Context, identifier, accountID string, now time.Time, deps LoginDeps) error {
	attempts, err := deps.IncrementFailed(ctx, identifier, now)
	if err != nil {
		deps.MetricInc(deps.Metrics.AttemptStoreError)
		deps.Warn(ctx, "increment attempt counter failed", err)
	}

	deps.MetricInc(deps.Metrics.Failure)
	deps.EmitAudit(ctx, deps.Events.Failure, false, accountID, identifier, deps.Errors.InvalidCredentials, func() map[string]string {
		return map[string]string{"failures": strconv.Itoa(attempts.Count)}
	})
	return deps.Errors.InvalidCredentials
}

func rehash(ctx context.Context, account AccountRecord, secret string, now time.Time, deps LoginDeps) {
	if deps.NeedsRehash == nil || deps.HashSecret == nil || deps.UpdateSecret == nil {
		return
	}
	need, err := deps.NeedsRehash(account.SecretHash)
	if err != nil || !need {
		return
	}
	upgraded, err := deps.HashSecret(secret)
	if err != nil {
		deps.Warn(ctx, "password rehash failed", err)
		return
	}
	if err := deps.UpdateSecret(ctx, account.ID, upgraded, now); err != nil {
		deps.Warn(ctx, "password rehash update failed", err)
	}
}
