package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/keydesk/keydesk/internal/service"
)

// SessionCookie is the name of the cookie holding the admin session token.
const SessionCookie = "keydesk_session"

type contextKeyAuth string

// PrincipalKey is the context key for the logged in admin.
const PrincipalKey contextKeyAuth = "admin_principal"

// TokenValidator checks a session token.
type TokenValidator interface {
	ValidateToken(token string) (*service.Principal, error)
}

// SessionToken extracts the session token from the request. A Bearer
// Authorization header takes precedence over the session cookie.
func SessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequireLogin rejects requests without a valid admin session. Browser
// routes are redirected to /login; everything else gets a 401 JSON error.
func RequireLogin(v TokenValidator, redirect bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := v.ValidateToken(SessionToken(r))
			if err != nil {
				if redirect {
					http.Redirect(w, r, "/login", http.StatusFound)
					return
				}
				writeJSONError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal returns the admin attached by RequireLogin, or nil.
func GetPrincipal(ctx context.Context) *service.Principal {
	if p, ok := ctx.Value(PrincipalKey).(*service.Principal); ok {
		return p
	}
	return nil
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
