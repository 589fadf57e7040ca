package auth

import (
	"net/http"
	"strings"

	"github.com/Skirja/tadsheen-quiz/internal/rbac"
)

// JWTMiddleware rejects requests without a valid bearer token and puts the
// subject and role into the request context for RBAC.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			claims, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			ctx := rbac.WithSubject(r.Context(), claims.Sub)
			ctx = rbac.WithRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Viewer extracts the claims from a bearer token if one is present. Public
// endpoints use it to attach an authenticated identity to otherwise
// anonymous actions; an absent or invalid token is not an error.
func Viewer(a *AuthService, r *http.Request) *Claims {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return nil
	}
	claims, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
	if err != nil {
		return nil
	}
	return claims
}
