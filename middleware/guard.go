package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/accountgate"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the claims stored by Guard.
func ClaimsFromContext(ctx context.Context) (*accountgate.CredentialClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*accountgate.CredentialClaims)
	return claims, ok
}

type credentialVerifier interface {
	VerifyCredential(token string) (*accountgate.CredentialClaims, error)
}

// Guard rejects requests without a valid bearer credential issued by engine.
func Guard(engine *accountgate.Engine) func(http.Handler) http.Handler {
	if engine == nil {
		return guard(nil)
	}
	return guard(engine)
}

func guard(verifier credentialVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := verifier.VerifyCredential(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
