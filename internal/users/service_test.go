package users

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

type memoryUserRepo struct {
	nextID int64
	users  map[int64]*User
	hashes map[int64]string
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{nextID: 1, users: make(map[int64]*User), hashes: make(map[int64]string)}
}

func (m *memoryUserRepo) List(_ context.Context, organizationID int64) ([]User, error) {
	var out []User
	for _, u := range m.users {
		if u.OrganizationID == organizationID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memoryUserRepo) ListAll(context.Context) ([]User, error) {
	var out []User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memoryUserRepo) Get(_ context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return *u, nil
}

func (m *memoryUserRepo) Create(_ context.Context, u User, passwordHash string) (User, error) {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return User{}, ErrDuplicateEmail
		}
	}
	u.ID = m.nextID
	m.nextID++
	u.Active = true
	m.users[u.ID] = &u
	m.hashes[u.ID] = passwordHash
	return u, nil
}

func (m *memoryUserRepo) Update(_ context.Context, id int64, name string) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	u.Name = name
	return *u, nil
}

func (m *memoryUserRepo) SetActive(_ context.Context, id int64, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Active = active
	return nil
}

func (m *memoryUserRepo) SetPassword(_ context.Context, id int64, passwordHash string) error {
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	m.hashes[id] = passwordHash
	return nil
}

type fakePurger struct {
	purged []string
}

func (f *fakePurger) PurgeUserSessions(_ context.Context, userID string) error {
	f.purged = append(f.purged, userID)
	return nil
}

func scopedCtx(orgID int64) context.Context {
	return tenant.ContextWithScope(context.Background(), &tenant.Scope{OrganizationID: orgID})
}

func adminCtx() context.Context {
	return shared.ContextWithCapability(context.Background(), shared.FullAccess())
}

func newTestService() (*Service, *memoryUserRepo, *fakePurger) {
	repo := newMemoryUserRepo()
	purger := &fakePurger{}
	return NewService(repo, purger, slog.New(slog.DiscardHandler)), repo, purger
}

func TestCreateHashesPassword(t *testing.T) {
	svc, repo, _ := newTestService()

	u, err := svc.Create(scopedCtx(1), CreateInput{
		OrganizationID: 1, Email: "Jo@Example.com", Name: " Jo ", Password: "correct horse",
	})
	require.NoError(t, err)
	require.Equal(t, "jo@example.com", u.Email)
	require.Equal(t, "Jo", u.Name)
	require.True(t, u.Active)

	hash := repo.hashes[u.ID]
	require.NotEqual(t, "correct horse", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")))
}

func TestCreateRejectsShortPasswords(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(scopedCtx(1), CreateInput{OrganizationID: 1, Email: "a@b.co", Name: "Al", Password: "short"})
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestDeactivatePurgesSessions(t *testing.T) {
	svc, repo, purger := newTestService()
	u, err := svc.Create(scopedCtx(1), CreateInput{OrganizationID: 1, Email: "a@b.co", Name: "Al", Password: "long enough"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(scopedCtx(1), u.ID))
	require.False(t, repo.users[u.ID].Active)
	require.Len(t, purger.purged, 1)
}

func TestChangePasswordPurgesSessions(t *testing.T) {
	svc, repo, purger := newTestService()
	u, err := svc.Create(scopedCtx(1), CreateInput{OrganizationID: 1, Email: "a@b.co", Name: "Al", Password: "long enough"})
	require.NoError(t, err)
	before := repo.hashes[u.ID]

	require.NoError(t, svc.ChangePassword(scopedCtx(1), u.ID, "even longer secret"))
	require.NotEqual(t, before, repo.hashes[u.ID])
	require.Len(t, purger.purged, 1)

	require.ErrorIs(t, svc.ChangePassword(scopedCtx(1), u.ID, "nope"), ErrWeakPassword)
}

func TestTenantsOnlySeeOwnUsers(t *testing.T) {
	svc, _, _ := newTestService()
	u, err := svc.Create(scopedCtx(1), CreateInput{OrganizationID: 1, Email: "a@b.co", Name: "Al", Password: "long enough"})
	require.NoError(t, err)

	_, err = svc.Get(scopedCtx(2), u.ID)
	require.ErrorIs(t, err, ErrNotFound)

	got, err := svc.Get(adminCtx(), u.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}
