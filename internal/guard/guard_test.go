package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type stubRoles struct {
	names map[int64][]string
}

func (s stubRoles) UserRoleNames(ctx context.Context, userID int64) ([]string, error) {
	return s.names[userID], nil
}

func protectedRequest(t *testing.T, g Guard, opts Options, userID string, cap shared.Capability) *httptest.ResponseRecorder {
	t.Helper()
	handler := g.Protect(opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/inventory", nil)
	ctx := req.Context()
	if userID != "" {
		sess := &shared.Session{}
		sess.SetUser(userID)
		ctx = shared.ContextWithSession(ctx, sess)
	}
	ctx = shared.ContextWithCapability(ctx, cap)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func TestUnauthenticatedRedirectsToEntry(t *testing.T) {
	g := Guard{Roles: stubRoles{}}
	rec := protectedRequest(t, g, Options{RequiredPermission: shared.PermInventoryView}, "", shared.Capability{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, EntryRoute, rec.Header().Get("Location"))
}

func TestMissingPermissionRedirectsToUnauthorized(t *testing.T) {
	g := Guard{Roles: stubRoles{}}
	cap := shared.ScopedAccess([]string{shared.PermItemsView})
	rec := protectedRequest(t, g, Options{RequiredPermission: shared.PermInventoryView}, "5", cap)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, UnauthorizedRoute, rec.Header().Get("Location"))
}

func TestGrantedPermissionAllows(t *testing.T) {
	g := Guard{Roles: stubRoles{}}
	cap := shared.ScopedAccess([]string{shared.PermInventoryView})
	rec := protectedRequest(t, g, Options{RequiredPermission: shared.PermInventoryView}, "5", cap)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestFullAccessBypassesDeclaredPermission(t *testing.T) {
	// A route cannot be made admin-proof: full access wins before the
	// permission requirement is even consulted.
	g := Guard{Roles: stubRoles{}}
	rec := protectedRequest(t, g, Options{RequiredPermission: "finance.journals.post"}, "1", shared.FullAccess())
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestFullAccessBypassesRequiredRoles(t *testing.T) {
	g := Guard{Roles: stubRoles{names: map[int64][]string{1: {"Admin-Role"}}}}
	rec := protectedRequest(t, g, Options{RequiredRoles: []string{"Accountant"}}, "1", shared.FullAccess())
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRoleDeniedRedirects(t *testing.T) {
	g := Guard{Roles: stubRoles{names: map[int64][]string{5: {"Clerk"}}}}
	rec := protectedRequest(t, g, Options{RequiredRoles: []string{"Accountant"}}, "5", shared.ScopedAccess(nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, UnauthorizedRoute, rec.Header().Get("Location"))
}

func TestRoleMatchAllows(t *testing.T) {
	g := Guard{Roles: stubRoles{names: map[int64][]string{5: {"Clerk", "Accountant"}}}}
	rec := protectedRequest(t, g, Options{RequiredRoles: []string{"Accountant"}}, "5", shared.ScopedAccess(nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNoRequirementsAllowsAuthenticated(t *testing.T) {
	g := Guard{Roles: stubRoles{}}
	rec := protectedRequest(t, g, Options{}, "5", shared.ScopedAccess(nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
