package tenant

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
)

// ProfileLoader loads the session-facing identity view for a user.
type ProfileLoader interface {
	LoadProfile(ctx context.Context, userID int64) (auth.Profile, error)
}

// Middleware injects the tenant scope derived from the session profile.
type Middleware struct {
	Profiles ProfileLoader
	Logger   *slog.Logger
}

// WithScope resolves the current organization once per request. Users without
// an organization proceed with a nil scope; scope-dependent reads then return
// empty results instead of failing.
func (m Middleware) WithScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := rbac.CurrentUserID(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		profile, err := m.Profiles.LoadProfile(r.Context(), userID)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("load profile for tenant scope", slog.Any("error", err))
			}
			next.ServeHTTP(w, r)
			return
		}
		if profile.Organization.ID == 0 && profile.Organization.Code == "" {
			next.ServeHTTP(w, r)
			return
		}
		scope := &Scope{
			OrganizationID:   profile.Organization.ID,
			OrganizationCode: profile.Organization.Code,
			OrganizationName: profile.Organization.Name,
		}
		next.ServeHTTP(w, r.WithContext(ContextWithScope(r.Context(), scope)))
	})
}
