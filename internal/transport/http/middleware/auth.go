package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/legal-directory-api/internal/infrastructure/jwt"
)

type contextKey string

const payloadKey contextKey = "token_payload"

// TokenVerifier checks an access token and returns its payload.
type TokenVerifier interface {
	Verify(token string) (*jwtinfra.Payload, error)
}

// Auth admits requests carrying a valid access token in a Bearer
// Authorization header and puts the token payload in the context.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "Authorization token not provided")
				return
			}
			p, err := verifier.Verify(token)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			if p.Kind != jwtinfra.KindAccess {
				writeJSONError(w, http.StatusUnauthorized, "Invalid token type")
				return
			}
			ctx := context.WithValue(r.Context(), payloadKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken matches the scheme case-insensitively and returns the rest of
// the header verbatim.
func bearerToken(header string) (string, bool) {
	const scheme = "bearer "
	if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", false
	}
	return header[len(scheme):], true
}

// PayloadFromContext returns the verified token payload set by Auth.
func PayloadFromContext(ctx context.Context) (*jwtinfra.Payload, bool) {
	p, ok := ctx.Value(payloadKey).(*jwtinfra.Payload)
	return p, ok
}

// MobileFromContext returns the authenticated mobile number.
func MobileFromContext(ctx context.Context) (string, bool) {
	p, ok := PayloadFromContext(ctx)
	if !ok {
		return "", false
	}
	return p.Subject, true
}

// WithPayload stores p the way Auth does. Handlers' tests use it to skip the gate.
func WithPayload(ctx context.Context, p *jwtinfra.Payload) context.Context {
	return context.WithValue(ctx, payloadKey, p)
}
