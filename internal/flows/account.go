package flows

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"
)

type CreateAccountRequest struct {
	Name            string
	Identifier      string
	Password        string
	PasswordConfirm string
}

// UpdateAccountRequest leaves a field unchanged when it is empty.
type UpdateAccountRequest struct {
	Name       string
	Identifier string
}

type ChangePasswordRequest struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

type AccountMetrics struct {
	Created               int
	Duplicate             int
	Updated               int
	Deleted               int
	PasswordChangeSuccess int
	PasswordChangeInvalid int
	PasswordChangeReuse   int
	AttemptStoreError     int
}

type AccountEvents struct {
	Created                string
	Updated                string
	Deleted                string
	PasswordChangeSuccess  string
	PasswordChangeRejected string
}

type AccountErrors struct {
	EngineNotReady     error
	InvalidParameter   error
	StoreUnavailable   error
	AccountNotFound    error
	AccountExists      error
	PasswordMismatch   error
	PasswordReuse      error
	PasswordPolicy     error
	InvalidCredentials error
}

// AccountDeps captures the account management dependencies. Store funcs
// must return Errors.AccountExists or Errors.AccountNotFound (possibly
// wrapped) for uniqueness and missing-row conditions.
type AccountDeps struct {
	Now              func() time.Time
	NewID            func() (string, error)
	FindByID         func(context.Context, string) (AccountRecord, bool, error)
	FindByIdentifier func(context.Context, string) (AccountRecord, bool, error)
	Insert           func(context.Context, AccountRecord) error
	UpdateProfile    func(context.Context, AccountRecord) error
	UpdateSecretHash func(ctx context.Context, id, hash string, at time.Time) error
	Delete           func(context.Context, string) error
	HashSecret       func(string) (string, error)
	VerifySecret     func(secret, hash string) (bool, error)
	ClearAttempts    func(context.Context, string) error
	MetricInc        func(int)
	EmitAudit        AuditFunc
	Warn             WarnFunc
	Metrics          AccountMetrics
	Events           AccountEvents
	Errors           AccountErrors
}

func (d *AccountDeps) defaults() error {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MetricInc == nil {
		d.MetricInc = noMetric
	}
	if d.EmitAudit == nil {
		d.EmitAudit = noAudit
	}
	if d.Warn == nil {
		d.Warn = noWarn
	}
	if d.FindByID == nil ||
		d.FindByIdentifier == nil ||
		d.Insert == nil ||
		d.UpdateProfile == nil ||
		d.UpdateSecretHash == nil ||
		d.Delete == nil ||
		d.HashSecret == nil ||
		d.VerifySecret == nil ||
		d.NewID == nil {
		return d.Errors.EngineNotReady
	}
	return nil
}

// storeErr passes domain errors through and wraps everything else as a store
// failure.
func (d *AccountDeps) storeErr(err error) error {
	if errors.Is(err, d.Errors.AccountExists) || errors.Is(err, d.Errors.AccountNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", d.Errors.StoreUnavailable, err)
}

func (d *AccountDeps) clearAttempts(ctx context.Context, identifier string) {
	if d.ClearAttempts == nil || identifier == "" {
		return
	}
	if err := d.ClearAttempts(ctx, identifier); err != nil {
		d.MetricInc(d.Metrics.AttemptStoreError)
		d.Warn(ctx, "clear attempt counter failed", err)
	}
}

// RunCreateAccount registers a new account with a freshly hashed secret.
func RunCreateAccount(ctx context.Context, req CreateAccountRequest, deps AccountDeps) (AccountRecord, error) {
	if err := deps.defaults(); err != nil {
		return AccountRecord{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Name == "" || req.Identifier == "" {
		return AccountRecord{}, fmt.Errorf("%w: name and identifier are required", deps.Errors.InvalidParameter)
	}
	if req.Password != req.PasswordConfirm {
		return AccountRecord{}, deps.Errors.PasswordMismatch
	}

	_, exists, err := deps.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		return AccountRecord{}, deps.storeErr(err)
	}
	if exists {
		deps.MetricInc(deps.Metrics.Duplicate)
		return AccountRecord{}, deps.Errors.AccountExists
	}

	hash, err := deps.HashSecret(req.Password)
	if err != nil {
		return AccountRecord{}, err
	}
	id, err := deps.NewID()
	if err != nil {
		return AccountRecord{}, fmt.Errorf("%w: %w", deps.Errors.EngineNotReady, err)
	}

	now := deps.Now()
	rec := AccountRecord{
		ID:         id,
		Identifier: req.Identifier,
		Name:       req.Name,
		SecretHash: hash,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := deps.Insert(ctx, rec); err != nil {
		if errors.Is(err, deps.Errors.AccountExists) {
			deps.MetricInc(deps.Metrics.Duplicate)
		}
		return AccountRecord{}, deps.storeErr(err)
	}

	deps.MetricInc(deps.Metrics.Created)
	deps.EmitAudit(ctx, deps.Events.Created, true, rec.ID, rec.Identifier, nil, nil)
	return rec, nil
}

// RunGetAccount loads one account by id.
func RunGetAccount(ctx context.Context, id string, deps AccountDeps) (AccountRecord, error) {
	if err := deps.defaults(); err != nil {
		return AccountRecord{}, err
	}
	rec, found, err := deps.FindByID(ctx, id)
	if err != nil {
		return AccountRecord{}, deps.storeErr(err)
	}
	if !found {
		return AccountRecord{}, deps.Errors.AccountNotFound
	}
	return rec, nil
}

// RunUpdateAccount changes the display name and/or identifier. Moving to an
// identifier owned by another account fails with AccountExists. The old
// identifier's failure counter is dropped when the identifier changes.
func RunUpdateAccount(ctx context.Context, id string, req UpdateAccountRequest, deps AccountDeps) (AccountRecord, error) {
	if err := deps.defaults(); err != nil {
		return AccountRecord{}, err
	}

	rec, found, err := deps.FindByID(ctx, id)
	if err != nil {
		return AccountRecord{}, deps.storeErr(err)
	}
	if !found {
		return AccountRecord{}, deps.Errors.AccountNotFound
	}

	oldIdentifier := rec.Identifier
	if name := strings.TrimSpace(req.Name); name != "" {
		rec.Name = name
	}
	if identifier := strings.TrimSpace(req.Identifier); identifier != "" && identifier != rec.Identifier {
		other, taken, err := deps.FindByIdentifier(ctx, identifier)
		if err != nil {
			return AccountRecord{}, deps.storeErr(err)
		}
		if taken && other.ID != rec.ID {
			deps.MetricInc(deps.Metrics.Duplicate)
			return AccountRecord{}, deps.Errors.AccountExists
		}
		rec.Identifier = identifier
	}
	rec.UpdatedAt = deps.Now()

	if err := deps.UpdateProfile(ctx, rec); err != nil {
		if errors.Is(err, deps.Errors.AccountExists) {
			deps.MetricInc(deps.Metrics.Duplicate)
		}
		return AccountRecord{}, deps.storeErr(err)
	}
	if rec.Identifier != oldIdentifier {
		deps.clearAttempts(ctx, oldIdentifier)
	}

	deps.MetricInc(deps.Metrics.Updated)
	deps.EmitAudit(ctx, deps.Events.Updated, true, rec.ID, rec.Identifier, nil, func() map[string]string {
		if rec.Identifier == oldIdentifier {
			return nil
		}
		return map[string]string{"previous_identifier": oldIdentifier}
	})
	return rec, nil
}

// RunDeleteAccount removes an account and its failure counter.
func RunDeleteAccount(ctx context.Context, id string, deps AccountDeps) error {
	if err := deps.defaults(); err != nil {
		return err
	}

	rec, found, err := deps.FindByID(ctx, id)
	if err != nil {
		return deps.storeErr(err)
	}
	if !found {
		return deps.Errors.AccountNotFound
	}
	if err := deps.Delete(ctx, id); err != nil {
		return deps.storeErr(err)
	}
	deps.clearAttempts(ctx, rec.Identifier)

	deps.MetricInc(deps.Metrics.Deleted)
	deps.EmitAudit(ctx, deps.Events.Deleted, true, rec.ID, rec.Identifier, nil, nil)
	return nil
}

// RunChangePassword replaces the secret after verifying the current one. A
// successful change also clears the identifier's failure counter.
func RunChangePassword(ctx context.Context, id string, req ChangePasswordRequest, deps AccountDeps) error {
	if err := deps.defaults(); err != nil {
		return err
	}
	if req.NewPassword != req.ConfirmPassword {
		return deps.Errors.PasswordMismatch
	}

	rec, found, err := deps.FindByID(ctx, id)
	if err != nil {
		return deps.storeErr(err)
	}
	if !found {
		return deps.Errors.AccountNotFound
	}

	reject := func(metric int, reason string, err error) error {
		deps.MetricInc(metric)
		deps.EmitAudit(ctx, deps.Events.PasswordChangeRejected, false, rec.ID, rec.Identifier, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return err
	}

	ok, err := deps.VerifySecret(req.OldPassword, rec.SecretHash)
	if err != nil || !ok {
		return reject(deps.Metrics.PasswordChangeInvalid, "invalid_old_password", deps.Errors.InvalidCredentials)
	}
	if subtle.ConstantTimeCompare([]byte(req.OldPassword), []byte(req.NewPassword)) == 1 {
		return reject(deps.Metrics.PasswordChangeReuse, "password_reuse", deps.Errors.PasswordReuse)
	}

	hash, err := deps.HashSecret(req.NewPassword)
	if err != nil {
		return err
	}
	if err := deps.UpdateSecretHash(ctx, rec.ID, hash, deps.Now()); err != nil {
		return deps.storeErr(err)
	}
	deps.clearAttempts(ctx, rec.Identifier)

	deps.MetricInc(deps.Metrics.PasswordChangeSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordChangeSuccess, true, rec.ID, rec.Identifier, nil, nil)
	return nil
}
