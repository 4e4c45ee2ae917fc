package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/saraha-app/sessionkit"
)

// Authenticator is the part of *sessionkit.Engine the guard needs.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*sessionkit.Principal, error)
}

type principalContextKey struct{}

// PrincipalFromContext returns the principal stored by RequireAuth.
func PrincipalFromContext(ctx context.Context) (*sessionkit.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*sessionkit.Principal)
	return p, ok
}

// RequireAuth rejects requests without a valid bearer access token.
func RequireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				WriteError(w, sessionkit.ErrUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, sessionkit.ErrUnauthorized)
				return
			}

			principal, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
