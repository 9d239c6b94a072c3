package tenant

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type record struct {
	ID    int64
	OrgID int64
	Code  string
}

func (r record) TenantOrganization() (int64, string) {
	return r.OrgID, r.Code
}

func TestFilterByOrganizationKeepsOnlyOwnRecords(t *testing.T) {
	scope := &Scope{OrganizationID: 2, OrganizationCode: "RETA"}
	items := []record{
		{ID: 1, OrgID: 1, Code: "ADMN"},
		{ID: 2, OrgID: 2, Code: "RETA"},
		{ID: 3, OrgID: 3, Code: "WHOL"},
		{ID: 4, OrgID: 2, Code: "RETA"},
	}

	got := FilterByOrganization(scope, items)
	require.Len(t, got, 2)
	for _, item := range got {
		require.Equal(t, int64(2), item.OrgID)
	}
}

func TestFilterByOrganizationIdempotent(t *testing.T) {
	scope := &Scope{OrganizationID: 2}
	items := []record{
		{ID: 1, OrgID: 1},
		{ID: 2, OrgID: 2},
		{ID: 3, OrgID: 2},
	}

	once := FilterByOrganization(scope, items)
	twice := FilterByOrganization(scope, once)
	require.Equal(t, once, twice)
}

func TestFilterByOrganizationMatchesByCode(t *testing.T) {
	scope := &Scope{OrganizationCode: "RETA"}
	items := []record{
		{ID: 1, Code: "ADMN"},
		{ID: 2, Code: "RETA"},
	}

	got := FilterByOrganization(scope, items)
	require.Len(t, got, 1)
	require.Equal(t, int64(2), got[0].ID)
}

func TestFilterByOrganizationNoScopeReturnsEmpty(t *testing.T) {
	items := []record{{ID: 1, OrgID: 1}}
	require.Empty(t, FilterByOrganization(nil, items))
	require.Empty(t, FilterByOrganization(&Scope{}, items))
}
