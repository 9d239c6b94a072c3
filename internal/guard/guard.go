// Package guard implements permission-protected routes. A protected route
// admits a request only after the session, capability and role checks pass,
// redirecting to the public entry or the unauthorized route otherwise.
package guard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const (
	// EntryRoute is where unauthenticated requests are sent.
	EntryRoute = "/"
	// UnauthorizedRoute is where denied requests are sent.
	UnauthorizedRoute = "/unauthorized"
)

// RoleSource supplies the role names of a user, used only when a route
// declares RequiredRoles.
type RoleSource interface {
	UserRoleNames(ctx context.Context, userID int64) ([]string, error)
}

// Options declares what a protected route requires.
type Options struct {
	// RequiredPermission, when set, must be granted by the capability.
	RequiredPermission string
	// RequiredRoles, when set and RequiredPermission is empty, requires at
	// least one matching role name.
	RequiredRoles []string
}

// Guard builds protection middleware over session, capability and roles.
type Guard struct {
	Roles  RoleSource
	Logger *slog.Logger
}

// Protect returns middleware enforcing the route's requirements. Decision
// order: no session user redirects to the entry route; full-access
// capability admits unconditionally, before any permission or role check;
// a missing required permission redirects to the unauthorized route; role
// requirements apply only when no permission requirement was declared.
func (g Guard) Protect(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := rbac.CurrentUserID(r)
			if !ok {
				http.Redirect(w, r, EntryRoute, http.StatusSeeOther)
				return
			}

			cap := shared.CapabilityFromContext(r.Context())
			if cap.IsFull() {
				next.ServeHTTP(w, r)
				return
			}

			if opts.RequiredPermission != "" {
				if !cap.Has(opts.RequiredPermission) {
					http.Redirect(w, r, UnauthorizedRoute, http.StatusSeeOther)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if len(opts.RequiredRoles) > 0 {
				names, err := g.Roles.UserRoleNames(r.Context(), userID)
				if err != nil {
					if g.Logger != nil {
						g.Logger.Error("guard role lookup", slog.Any("error", err))
					}
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				if !anyRoleMatches(names, opts.RequiredRoles) {
					http.Redirect(w, r, UnauthorizedRoute, http.StatusSeeOther)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func anyRoleMatches(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, name := range have {
		set[name] = struct{}{}
	}
	for _, name := range want {
		if _, ok := set[name]; ok {
			return true
		}
	}
	return false
}
