package accountgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/accountgate/internal/flows"
	internalmetrics "github.com/MrEthical07/accountgate/internal/metrics"
	"github.com/MrEthical07/accountgate/password"
)

// CreateAccount registers a new account. The secret must be between
// password.MinPasswordBytes and Password.MaxPasswordBytes long.
func (e *Engine) CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error) {
	deps, err := e.accountDeps()
	if err != nil {
		return nil, err
	}
	rec, err := flows.RunCreateAccount(ctx, flows.CreateAccountRequest{
		Name:            req.Name,
		Identifier:      req.Identifier,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	}, deps)
	if err != nil {
		return nil, err
	}
	a := fromRecord(rec)
	return &a, nil
}

// GetAccount loads an account by id.
func (e *Engine) GetAccount(ctx context.Context, id string) (*Account, error) {
	deps, err := e.accountDeps()
	if err != nil {
		return nil, err
	}
	rec, err := flows.RunGetAccount(ctx, id, deps)
	if err != nil {
		return nil, err
	}
	a := fromRecord(rec)
	return &a, nil
}

// UpdateAccount changes the name and/or identifier of an account.
func (e *Engine) UpdateAccount(ctx context.Context, id string, req UpdateAccountRequest) (*Account, error) {
	deps, err := e.accountDeps()
	if err != nil {
		return nil, err
	}
	rec, err := flows.RunUpdateAccount(ctx, id, flows.UpdateAccountRequest{
		Name:       req.Name,
		Identifier: req.Identifier,
	}, deps)
	if err != nil {
		return nil, err
	}
	a := fromRecord(rec)
	return &a, nil
}

// DeleteAccount removes an account and forgets its failure streak.
func (e *Engine) DeleteAccount(ctx context.Context, id string) error {
	deps, err := e.accountDeps()
	if err != nil {
		return err
	}
	return flows.RunDeleteAccount(ctx, id, deps)
}

// ChangePassword replaces the secret of an account. The old secret must
// verify and the new one must differ from it.
func (e *Engine) ChangePassword(ctx context.Context, id string, req ChangePasswordRequest) error {
	deps, err := e.accountDeps()
	if err != nil {
		return err
	}
	return flows.RunChangePassword(ctx, id, flows.ChangePasswordRequest{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	}, deps)
}

// IdentifierRegistered reports whether an account owns identifier. It only
// needs a RecordStore.
func (e *Engine) IdentifierRegistered(ctx context.Context, identifier string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	_, found, err := e.records.FindAccountByIdentifier(ctx, identifier)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return found, nil
}

func (e *Engine) accountDeps() (flows.AccountDeps, error) {
	if e == nil {
		return flows.AccountDeps{}, ErrEngineNotReady
	}
	if e.accounts == nil {
		return flows.AccountDeps{}, ErrAccountStoreReadOnly
	}
	store := e.accounts

	return flows.AccountDeps{
		Now:   e.now,
		NewID: e.newID,
		FindByID: func(ctx context.Context, id string) (flows.AccountRecord, bool, error) {
			a, found, err := store.FindAccountByID(ctx, id)
			return toRecord(a), found, err
		},
		FindByIdentifier: func(ctx context.Context, identifier string) (flows.AccountRecord, bool, error) {
			a, found, err := store.FindAccountByIdentifier(ctx, identifier)
			return toRecord(a), found, err
		},
		Insert: func(ctx context.Context, r flows.AccountRecord) error {
			return store.InsertAccount(ctx, fromRecord(r))
		},
		UpdateProfile: func(ctx context.Context, r flows.AccountRecord) error {
			return store.UpdateAccountProfile(ctx, fromRecord(r))
		},
		UpdateSecretHash: store.UpdateSecretHash,
		Delete:           store.DeleteAccount,
		HashSecret:       e.hashSecret,
		VerifySecret:     e.hasher.Verify,
		ClearAttempts:    e.attempts.Clear,
		MetricInc:        e.metricInc,
		EmitAudit:        e.auditFunc,
		Warn:             e.warn,
		Metrics: flows.AccountMetrics{
			Created:               int(internalmetrics.AccountCreated),
			Duplicate:             int(internalmetrics.AccountDuplicate),
			Updated:               int(internalmetrics.AccountUpdated),
			Deleted:               int(internalmetrics.AccountDeleted),
			PasswordChangeSuccess: int(internalmetrics.PasswordChangeSuccess),
			PasswordChangeInvalid: int(internalmetrics.PasswordChangeInvalidOld),
			PasswordChangeReuse:   int(internalmetrics.PasswordChangeReuse),
			AttemptStoreError:     int(internalmetrics.AttemptStoreError),
		},
		Events: flows.AccountEvents{
			Created:                AuditAccountCreated,
			Updated:                AuditAccountUpdated,
			Deleted:                AuditAccountDeleted,
			PasswordChangeSuccess:  AuditPasswordChangeSuccess,
			PasswordChangeRejected: AuditPasswordChangeRejected,
		},
		Errors: flows.AccountErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidParameter:   ErrInvalidParameter,
			StoreUnavailable:   ErrStoreUnavailable,
			AccountNotFound:    ErrAccountNotFound,
			AccountExists:      ErrAccountExists,
			PasswordMismatch:   ErrPasswordMismatch,
			PasswordReuse:      ErrPasswordReuse,
			PasswordPolicy:     ErrPasswordPolicy,
			InvalidCredentials: ErrInvalidCredentials,
		},
	}, nil
}

func (e *Engine) hashSecret(secret string) (string, error) {
	hash, err := e.hasher.Hash(secret)
	if err != nil {
		if errors.Is(err, password.ErrPolicy) || errors.Is(err, password.ErrTooLong) {
			return "", fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
		}
		return "", err
	}
	return hash, nil
}
