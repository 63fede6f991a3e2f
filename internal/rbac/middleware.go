package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/reduc/agenda/internal/platform/httpx"
	"github.com/reduc/agenda/internal/shared"
)

// RoleSource yields the current effective roles for a user.
type RoleSource interface {
	EffectiveRoles(ctx context.Context, email string) (EffectiveRoleSet, error)
}

// Middleware wires role checks for HTTP handlers. Roles are recomputed
// per request rather than read from the access token.
type Middleware struct {
	Roles  RoleSource
	Logger *slog.Logger
}

// RequireAny ensures the current user holds at least one of the roles.
func (m Middleware) RequireAny(roles ...Role) func(http.Handler) http.Handler {
	return m.require("rbac require any", roles, func(set EffectiveRoleSet) bool {
		for _, r := range roles {
			if set.Has(r) {
				return true
			}
		}
		return false
	})
}

// RequireAll ensures the current user holds every role.
func (m Middleware) RequireAll(roles ...Role) func(http.Handler) http.Handler {
	return m.require("rbac require all", roles, func(set EffectiveRoleSet) bool {
		for _, r := range roles {
			if !set.Has(r) {
				return false
			}
		}
		return true
	})
}

func (m Middleware) require(op string, roles []Role, allowed func(EffectiveRoleSet) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(roles) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.Fail(w, http.StatusUnauthorized, httpx.MessageUnauthorized)
				return
			}
			set, err := m.Roles.EffectiveRoles(r.Context(), principal.Email)
			if err != nil {
				if errors.Is(err, ErrUserNotFound) {
					httpx.Fail(w, http.StatusForbidden, httpx.MessageForbidden)
					return
				}
				if m.Logger != nil {
					m.Logger.Error(op, slog.Any("error", err))
				}
				httpx.Fail(w, http.StatusInternalServerError, httpx.MessageInternal)
				return
			}
			if !allowed(set) {
				if m.Logger != nil {
					m.Logger.Warn("role check denied",
						slog.String("email", principal.Email),
						slog.Any("required", roles),
						slog.String("path", r.URL.Path),
					)
				}
				httpx.Fail(w, http.StatusForbidden, httpx.MessageForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
