package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRBACRepo struct {
	roles       map[int64]Role
	perms       map[int64]Permission
	rolePerms   map[int64][]int64
	userRoles   map[int64][]int64
	nextID      int64
	failAttach  bool
	deletedRole []int64
}

func newMemoryRBACRepo() *memoryRBACRepo {
	return &memoryRBACRepo{
		roles:     make(map[int64]Role),
		perms:     make(map[int64]Permission),
		rolePerms: make(map[int64][]int64),
		userRoles: make(map[int64][]int64),
	}
}

func (r *memoryRBACRepo) next() int64 {
	r.nextID++
	return r.nextID
}

func (r *memoryRBACRepo) ListRoles(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, role)
	}
	return out, nil
}

func (r *memoryRBACRepo) GetRole(ctx context.Context, id int64) (Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (r *memoryRBACRepo) GetRoleByName(ctx context.Context, name string) (Role, error) {
	for _, role := range r.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return Role{}, ErrNotFound
}

func (r *memoryRBACRepo) CreateRole(ctx context.Context, role Role) (Role, error) {
	role.ID = r.next()
	r.roles[role.ID] = role
	return role, nil
}

func (r *memoryRBACRepo) UpdateRole(ctx context.Context, role Role) (Role, error) {
	if _, ok := r.roles[role.ID]; !ok {
		return Role{}, ErrNotFound
	}
	r.roles[role.ID] = role
	return role, nil
}

func (r *memoryRBACRepo) DeleteRole(ctx context.Context, id int64) error {
	if _, ok := r.roles[id]; !ok {
		return ErrNotFound
	}
	delete(r.roles, id)
	r.deletedRole = append(r.deletedRole, id)
	return nil
}

func (r *memoryRBACRepo) ListPermissions(ctx context.Context) ([]Permission, error) {
	out := make([]Permission, 0, len(r.perms))
	for _, p := range r.perms {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryRBACRepo) EnsurePermission(ctx context.Context, perm Permission) (Permission, error) {
	for _, p := range r.perms {
		if p.Name == perm.Name {
			return p, nil
		}
	}
	perm.ID = r.next()
	r.perms[perm.ID] = perm
	return perm, nil
}

func (r *memoryRBACRepo) ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	var out []Permission
	for _, id := range r.rolePerms[roleID] {
		out = append(out, r.perms[id])
	}
	return out, nil
}

func (r *memoryRBACRepo) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	if r.failAttach {
		return errors.New("attach failed")
	}
	r.rolePerms[roleID] = append(r.rolePerms[roleID], permissionID)
	return nil
}

func (r *memoryRBACRepo) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	ids := r.rolePerms[roleID]
	out := ids[:0]
	for _, id := range ids {
		if id != permissionID {
			out = append(out, id)
		}
	}
	r.rolePerms[roleID] = out
	return nil
}

func (r *memoryRBACRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	r.userRoles[userID] = append(r.userRoles[userID], roleID)
	return nil
}

func (r *memoryRBACRepo) RemoveRole(ctx context.Context, userID, roleID int64) error {
	ids := r.userRoles[userID]
	out := ids[:0]
	for _, id := range ids {
		if id != roleID {
			out = append(out, id)
		}
	}
	r.userRoles[userID] = out
	return nil
}

func (r *memoryRBACRepo) UserRoleNames(ctx context.Context, userID int64) ([]string, error) {
	var names []string
	for _, roleID := range r.userRoles[userID] {
		names = append(names, r.roles[roleID].Name)
	}
	return names, nil
}

func (r *memoryRBACRepo) UserEffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	seen := make(map[string]struct{})
	var names []string
	for _, roleID := range r.userRoles[userID] {
		for _, permID := range r.rolePerms[roleID] {
			name := r.perms[permID].Name
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names, nil
}

var _ RepositoryPort = (*memoryRBACRepo)(nil)

func seedUser(t *testing.T, repo *memoryRBACRepo, roleName string, permNames ...string) int64 {
	t.Helper()
	ctx := context.Background()
	role, err := repo.CreateRole(ctx, Role{Name: roleName})
	require.NoError(t, err)
	for _, name := range permNames {
		perm, err := repo.EnsurePermission(ctx, Permission{Name: name})
		require.NoError(t, err)
		require.NoError(t, repo.AttachPermission(ctx, role.ID, perm.ID))
	}
	userID := repo.next()
	require.NoError(t, repo.AssignRole(ctx, userID, role.ID))
	return userID
}

func TestIsAdminRole(t *testing.T) {
	require.True(t, IsAdminRole("admin"))
	require.True(t, IsAdminRole("Admin-Role"))
	require.True(t, IsAdminRole("Warehouse ADMIN"))
	require.True(t, IsAdminRole("Administrator"))
	require.False(t, IsAdminRole("Accountant"))
	require.False(t, IsAdminRole(""))
}

func TestResolveCapabilityAdminBypassesCatalog(t *testing.T) {
	repo := newMemoryRBACRepo()
	svc := NewService(repo, nil)
	userID := seedUser(t, repo, "Admin-Role")

	cap, err := svc.ResolveCapability(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, cap.IsFull())
	for _, name := range shared.AllScopes() {
		require.True(t, cap.Has(name), name)
	}
	// Even permissions never seeded are granted: the bypass ignores the catalog.
	require.True(t, cap.Has("finance.journals.post"))
	require.True(t, cap.Has("not.a.real.permission"))
}

func TestResolveCapabilityScopedExactMembership(t *testing.T) {
	repo := newMemoryRBACRepo()
	svc := NewService(repo, nil)
	userID := seedUser(t, repo, "Clerk", shared.PermItemsView, shared.PermInvoicesView)

	cap, err := svc.ResolveCapability(context.Background(), userID)
	require.NoError(t, err)
	require.False(t, cap.IsFull())
	require.True(t, cap.Has(shared.PermItemsView))
	require.True(t, cap.Has(shared.PermInvoicesView))
	require.False(t, cap.Has(shared.PermItemsEdit))
	require.False(t, cap.Has(shared.PermJournalsPost))
}

func TestResolveCapabilityNoUserFailsClosed(t *testing.T) {
	repo := newMemoryRBACRepo()
	svc := NewService(repo, nil)

	cap, err := svc.ResolveCapability(context.Background(), 0)
	require.NoError(t, err)
	require.False(t, cap.IsFull())
	require.False(t, cap.Has(shared.PermItemsView))
}

func TestCreateRoleCompensatesOnAttachFailure(t *testing.T) {
	repo := newMemoryRBACRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	perm, err := repo.EnsurePermission(ctx, Permission{Name: shared.PermItemsView})
	require.NoError(t, err)

	repo.failAttach = true
	_, err = svc.CreateRole(ctx, "Clerk", "", nil, []int64{perm.ID})
	require.Error(t, err)
	require.Empty(t, repo.roles, "role should be rolled back when attach fails")
	require.NotEmpty(t, repo.deletedRole)
}

func TestSetRolePermissionsReplacesSet(t *testing.T) {
	repo := newMemoryRBACRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	role, err := repo.CreateRole(ctx, Role{Name: "Clerk"})
	require.NoError(t, err)
	a, _ := repo.EnsurePermission(ctx, Permission{Name: "a"})
	b, _ := repo.EnsurePermission(ctx, Permission{Name: "b"})
	c, _ := repo.EnsurePermission(ctx, Permission{Name: "c"})
	require.NoError(t, svc.SetRolePermissions(ctx, role.ID, []int64{a.ID, b.ID}))
	require.NoError(t, svc.SetRolePermissions(ctx, role.ID, []int64{b.ID, c.ID}))

	perms, err := svc.ListRolePermissions(ctx, role.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	require.ElementsMatch(t, []string{"b", "c"}, names)
}
