package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZeroCapabilityDeniesEverything(t *testing.T) {
	var cap Capability
	require.False(t, cap.Has(PermJournalsPost))
	require.False(t, cap.HasAny(PermUsersView, PermRolesView))
	require.False(t, cap.IsFull())
}

func TestFullAccessGrantsEverything(t *testing.T) {
	cap := FullAccess()
	for _, name := range AllScopes() {
		require.True(t, cap.Has(name), name)
	}
	require.True(t, cap.Has("some.permission.nobody.declared"))
}

func TestScopedAccessExactMembership(t *testing.T) {
	cap := ScopedAccess([]string{PermItemsView, " Finance.Journals.View "})
	require.True(t, cap.Has(PermItemsView))
	require.True(t, cap.Has(PermJournalsView))
	require.False(t, cap.Has(PermItemsEdit))
	require.True(t, cap.HasAny(PermItemsEdit, PermItemsView))
	require.False(t, cap.HasAll(PermItemsView, PermItemsEdit))
	require.True(t, cap.HasAll(PermItemsView, PermJournalsView))
}
