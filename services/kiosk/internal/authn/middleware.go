package authn

import (
	"net/http"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
)

// Middleware attaches the session principal, if any, to the request context.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.Resolve(r.Context(), r)
		if err != nil {
			m.logger.Error("cannot resolve session", "error", err)
			core.RespondError(w, http.StatusInternalServerError, "Could not resolve session")
			return
		}
		if p != nil {
			r = r.WithContext(WithPrincipal(r.Context(), *p))
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			core.RespondError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			core.RespondError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !p.IsAdmin() {
			core.RespondError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
