package handler

import (
	"net/http"
	"slices"
	"strings"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/auth"
	"github.com/xenking/tastetrack/internal/domain/user"
)

// authenticate resolves an optional bearer token into an auth.Identity on
// the request context. A present but invalid token is rejected even on
// public routes.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, r, apperr.New(apperr.Unauthorized, "malformed authorization header"))
			return
		}

		id, err := h.auth.Resolve(r.Context(), strings.TrimSpace(token))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

type identityHandler func(w http.ResponseWriter, r *http.Request, caller auth.Identity)

// authed requires an authenticated caller of any role.
func authed(fn identityHandler) http.Handler {
	return requireRole(fn)
}

// requireRole requires an authenticated caller holding one of roles. No roles
// means any role.
func requireRole(fn identityHandler, roles ...user.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, r, apperr.New(apperr.Unauthorized, "authentication required"))
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, caller.Role) {
			writeError(w, r, apperr.New(apperr.Forbidden, "insufficient role"))
			return
		}
		fn(w, r, caller)
	})
}
