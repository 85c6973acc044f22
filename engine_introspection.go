package accountgate

import (
	"context"
	"fmt"

	"github.com/MrEthical07/accountgate/jwt"
)

// CredentialClaims are the claims carried by a credential from the built-in
// issuer.
type CredentialClaims = jwt.Claims

// VerifyCredential validates a token returned by Login. It only works with
// the built-in JWT issuer; with a custom CredentialIssuer it returns
// ErrEngineNotReady.
func (e *Engine) VerifyCredential(token string) (*CredentialClaims, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.jwtManager.ParseCredential(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentialInvalid, err)
	}
	return claims, nil
}

// AttemptStatus reports the current failure streak of identifier. An expired
// lockout reads as unlocked even before the next Login clears it. The
// remaining lockout time is deliberately not exposed.
func (e *Engine) AttemptStatus(ctx context.Context, identifier string) (AttemptStatus, error) {
	if e == nil {
		return AttemptStatus{}, ErrEngineNotReady
	}
	c, found, err := e.attempts.Get(ctx, identifier)
	if err != nil {
		return AttemptStatus{}, fmt.Errorf("%w: %w", ErrAttemptStoreUnavailable, err)
	}
	if !found {
		return AttemptStatus{}, nil
	}
	return AttemptStatus{
		Failures: c.Count,
		Locked:   c.LockedAt(e.now(), e.config.Lockout.MaxFailedAttempts, e.config.Lockout.Window),
	}, nil
}
