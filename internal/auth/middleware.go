package auth

import (
	"net/http"
	"strings"

	"github.com/devlinduldulao/citizenship-application/internal/auth/jwt"
	"github.com/devlinduldulao/citizenship-application/pkg/errors"
	"github.com/devlinduldulao/citizenship-application/pkg/httputil"
)

// Middleware validates bearer tokens and attaches the caller identity to the
// request context.
func Middleware(manager *jwt.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.Error(w, errors.Unauthorized("missing authorization header"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				httputil.Error(w, errors.Unauthorized("invalid authorization header format"))
				return
			}

			claims, err := manager.Validate(parts[1])
			if err != nil {
				httputil.Error(w, err)
				return
			}

			ctx := httputil.WithUserContext(r.Context(), claims.UserID, claims.Email, claims.IsReviewer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireReviewer rejects callers without the reviewer role. Must run after
// Middleware.
func RequireReviewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !httputil.IsReviewer(r.Context()) {
			httputil.Error(w, errors.Forbidden("reviewer role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
