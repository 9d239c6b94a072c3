package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func permissionRequest(t *testing.T, mw func(http.Handler) http.Handler, cap shared.Capability) *httptest.ResponseRecorder {
	t.Helper()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req = req.WithContext(shared.ContextWithCapability(req.Context(), cap))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireAnyAdmitsGrantedPermission(t *testing.T) {
	m := Middleware{}
	cap := shared.ScopedAccess([]string{shared.PermItemsView})

	rec := permissionRequest(t, m.RequireAny(shared.PermItemsView, shared.PermItemsEdit), cap)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAnyRejectsMissingPermission(t *testing.T) {
	m := Middleware{}
	cap := shared.ScopedAccess([]string{shared.PermItemsView})

	rec := permissionRequest(t, m.RequireAny(shared.PermItemsEdit), cap)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAnyNormalizesNames(t *testing.T) {
	m := Middleware{}
	cap := shared.ScopedAccess([]string{shared.PermItemsView})

	rec := permissionRequest(t, m.RequireAny("  "+shared.PermItemsView+" ", ""), cap)
	require.Equal(t, http.StatusOK, rec.Code)

	// Only blank names means nothing is required.
	rec = permissionRequest(t, m.RequireAny("", "   "), shared.Capability{})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	m := Middleware{}
	cap := shared.ScopedAccess([]string{shared.PermItemsView})

	rec := permissionRequest(t, m.RequireAll(shared.PermItemsView, shared.PermItemsEdit), cap)
	require.Equal(t, http.StatusForbidden, rec.Code)

	cap = shared.ScopedAccess([]string{shared.PermItemsView, shared.PermItemsEdit})
	rec = permissionRequest(t, m.RequireAll(shared.PermItemsView, shared.PermItemsEdit), cap)
	require.Equal(t, http.StatusOK, rec.Code)
}
