package orgs

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/rbac"
)

type memoryOrgRepo struct {
	nextID    int64
	orgs      map[int64]Organization
	divisions map[int64]Division
	users     map[int64]string
	contacts  map[int64][]Contact
	refs      map[int64][]Reference
}

func newMemoryOrgRepo() *memoryOrgRepo {
	return &memoryOrgRepo{
		nextID:    1,
		orgs:      make(map[int64]Organization),
		divisions: make(map[int64]Division),
		users:     make(map[int64]string),
		contacts:  make(map[int64][]Contact),
		refs:      make(map[int64][]Reference),
	}
}

func (m *memoryOrgRepo) ListOrganizations(context.Context) ([]Organization, error) {
	var out []Organization
	for _, o := range m.orgs {
		out = append(out, o)
	}
	return out, nil
}

func (m *memoryOrgRepo) GetOrganization(_ context.Context, id int64) (Organization, error) {
	o, ok := m.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return o, nil
}

func (m *memoryOrgRepo) GetOrganizationByCode(_ context.Context, code string) (Organization, error) {
	for _, o := range m.orgs {
		if o.Code == code {
			return o, nil
		}
	}
	return Organization{}, ErrNotFound
}

func (m *memoryOrgRepo) CreateOrganization(_ context.Context, org Organization) (Organization, error) {
	for _, existing := range m.orgs {
		if existing.Code == org.Code {
			return Organization{}, ErrDuplicateCode
		}
	}
	org.ID = m.nextID
	m.nextID++
	m.orgs[org.ID] = org
	return org, nil
}

func (m *memoryOrgRepo) UpdateOrganization(_ context.Context, org Organization) (Organization, error) {
	existing, ok := m.orgs[org.ID]
	if !ok {
		return Organization{}, ErrNotFound
	}
	org.Code = existing.Code
	m.orgs[org.ID] = org
	return org, nil
}

func (m *memoryOrgRepo) DeleteOrganization(_ context.Context, id int64) error {
	if _, ok := m.orgs[id]; !ok {
		return ErrNotFound
	}
	delete(m.orgs, id)
	return nil
}

func (m *memoryOrgRepo) ListDivisions(_ context.Context, organizationID int64) ([]Division, error) {
	var out []Division
	for _, d := range m.divisions {
		if d.OrganizationID == organizationID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryOrgRepo) GetDivision(_ context.Context, id int64) (Division, error) {
	d, ok := m.divisions[id]
	if !ok {
		return Division{}, ErrNotFound
	}
	return d, nil
}

func (m *memoryOrgRepo) CreateDivision(_ context.Context, div Division) (Division, error) {
	for _, existing := range m.divisions {
		if existing.Code == div.Code {
			return Division{}, ErrDuplicateCode
		}
	}
	div.ID = m.nextID
	m.nextID++
	m.divisions[div.ID] = div
	return div, nil
}

func (m *memoryOrgRepo) UpdateDivision(_ context.Context, div Division) (Division, error) {
	if _, ok := m.divisions[div.ID]; !ok {
		return Division{}, ErrNotFound
	}
	m.divisions[div.ID] = div
	return div, nil
}

func (m *memoryOrgRepo) ReplaceContacts(_ context.Context, organizationID int64, contacts []Contact) error {
	m.contacts[organizationID] = contacts
	return nil
}

func (m *memoryOrgRepo) ReplaceReferences(_ context.Context, organizationID int64, refs []Reference) error {
	m.refs[organizationID] = refs
	return nil
}

func (m *memoryOrgRepo) CreateUser(_ context.Context, email, _, _ string, _ int64) (int64, error) {
	id := m.nextID
	m.nextID++
	m.users[id] = email
	return id, nil
}

func (m *memoryOrgRepo) FindUserIDByEmail(_ context.Context, email string) (int64, error) {
	for id, e := range m.users {
		if e == email {
			return id, nil
		}
	}
	return 0, ErrNotFound
}

func (m *memoryOrgRepo) DeleteUser(_ context.Context, id int64) error {
	delete(m.users, id)
	return nil
}

type memoryRoleProvisioner struct {
	nextID      int64
	roles       map[int64]rbac.Role
	rolePerms   map[int64][]int64
	assignments map[int64][]int64
	failAssign  bool
	seedCalls   int
}

func newMemoryRoleProvisioner() *memoryRoleProvisioner {
	return &memoryRoleProvisioner{
		nextID:      1,
		roles:       make(map[int64]rbac.Role),
		rolePerms:   make(map[int64][]int64),
		assignments: make(map[int64][]int64),
	}
}

func (m *memoryRoleProvisioner) SeedCatalog(context.Context) ([]rbac.Permission, error) {
	m.seedCalls++
	perms := make([]rbac.Permission, 0, 3)
	for i := int64(1); i <= 3; i++ {
		perms = append(perms, rbac.Permission{ID: i})
	}
	return perms, nil
}

func (m *memoryRoleProvisioner) GetRoleByName(_ context.Context, name string) (rbac.Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return rbac.Role{}, rbac.ErrNotFound
}

func (m *memoryRoleProvisioner) CreateRole(_ context.Context, name, description string, organizationID *int64, permissionIDs []int64) (rbac.Role, error) {
	role := rbac.Role{ID: m.nextID, Name: name, Description: description, OrganizationID: organizationID}
	m.nextID++
	m.roles[role.ID] = role
	m.rolePerms[role.ID] = permissionIDs
	return role, nil
}

func (m *memoryRoleProvisioner) SetRolePermissions(_ context.Context, roleID int64, permissionIDs []int64) error {
	m.rolePerms[roleID] = permissionIDs
	return nil
}

func (m *memoryRoleProvisioner) AssignRole(_ context.Context, userID, roleID int64) error {
	if m.failAssign {
		return errors.New("assign failed")
	}
	for _, existing := range m.assignments[userID] {
		if existing == roleID {
			return nil
		}
	}
	m.assignments[userID] = append(m.assignments[userID], roleID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestBootstrapCreatesAdminTrio(t *testing.T) {
	repo := newMemoryOrgRepo()
	roles := newMemoryRoleProvisioner()
	b := NewBootstrapper(repo, roles, testLogger())

	require.NoError(t, b.Run(context.Background(), "correct horse battery staple"))

	org, err := repo.GetOrganizationByCode(context.Background(), AdminOrganizationCode)
	require.NoError(t, err)
	require.Equal(t, OrgTypeAdmin, org.Type)

	role, err := roles.GetRoleByName(context.Background(), rbac.AdminRoleName)
	require.NoError(t, err)
	require.Len(t, roles.rolePerms[role.ID], 3)

	userID, err := repo.FindUserIDByEmail(context.Background(), AdminUserEmail)
	require.NoError(t, err)
	require.Equal(t, []int64{role.ID}, roles.assignments[userID])
}

func TestBootstrapIsIdempotent(t *testing.T) {
	repo := newMemoryOrgRepo()
	roles := newMemoryRoleProvisioner()
	b := NewBootstrapper(repo, roles, testLogger())

	require.NoError(t, b.Run(context.Background(), "correct horse battery staple"))
	require.NoError(t, b.Run(context.Background(), "correct horse battery staple"))

	require.Len(t, repo.orgs, 1)
	require.Len(t, roles.roles, 1)
	require.Len(t, repo.users, 1)

	userID, err := repo.FindUserIDByEmail(context.Background(), AdminUserEmail)
	require.NoError(t, err)
	require.Len(t, roles.assignments[userID], 1)
}

func TestBootstrapRequiresPassword(t *testing.T) {
	b := NewBootstrapper(newMemoryOrgRepo(), newMemoryRoleProvisioner(), testLogger())
	require.Error(t, b.Run(context.Background(), ""))
}

func TestBootstrapCompensatesOnAssignFailure(t *testing.T) {
	repo := newMemoryOrgRepo()
	roles := newMemoryRoleProvisioner()
	roles.failAssign = true
	b := NewBootstrapper(repo, roles, testLogger())

	require.Error(t, b.Run(context.Background(), "correct horse battery staple"))
	require.Empty(t, repo.orgs)
	require.Empty(t, repo.users)
}
