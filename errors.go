package accountgate

import "errors"

var (
	// ErrLoginRateLimited is returned while an identifier is locked out. It
	// never carries the remaining wait time.
	ErrLoginRateLimited = errors.New("too many failed login attempts, try again later")
	// ErrInvalidCredentials is the single failure for any login that does not
	// authenticate. It does not say whether the identifier exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidParameter is returned for malformed listing or account input.
	ErrInvalidParameter = errors.New("invalid parameter")

	ErrEngineNotReady          = errors.New("engine not initialized")
	ErrStoreUnavailable        = errors.New("record store unavailable")
	ErrAttemptStoreUnavailable = errors.New("attempt store unavailable")
	ErrAccountNotFound         = errors.New("account not found")
	ErrAccountExists           = errors.New("identifier already registered")
	ErrAccountStoreReadOnly    = errors.New("record store does not support account management")
	ErrPasswordPolicy          = errors.New("password does not satisfy policy")
	ErrPasswordMismatch        = errors.New("password confirmation does not match")
	ErrPasswordReuse           = errors.New("new password must differ from the current one")
	ErrCredentialIssue         = errors.New("credential issuance failed")
	ErrCredentialInvalid       = errors.New("credential invalid")
)
