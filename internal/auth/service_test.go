package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryAuthRepo struct {
	users    map[string]*User
	profiles map[int64]Profile
	sessions map[string]int64
}

func newMemoryAuthRepo() *memoryAuthRepo {
	return &memoryAuthRepo{
		users:    make(map[string]*User),
		profiles: make(map[int64]Profile),
		sessions: make(map[string]int64),
	}
}

func (r *memoryAuthRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, errors.New("no rows")
	}
	return u, nil
}

func (r *memoryAuthRepo) GetProfile(ctx context.Context, userID int64) (Profile, error) {
	p, ok := r.profiles[userID]
	if !ok {
		return Profile{}, errors.New("no rows")
	}
	return p, nil
}

func (r *memoryAuthRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	r.sessions[id] = userID
	return nil
}

func (r *memoryAuthRepo) DeleteSession(ctx context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func seedUser(t *testing.T, repo *memoryAuthRepo, email, password string, active bool) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &User{ID: int64(len(repo.users) + 1), Email: email, PasswordHash: string(hash), IsActive: active}
	repo.users[email] = u
	return u
}

func TestAuthenticateValidCredentials(t *testing.T) {
	repo := newMemoryAuthRepo()
	seeded := seedUser(t, repo, "ops@example.com", "open-sesame", true)
	svc := NewService(repo)

	user, err := svc.Authenticate(context.Background(), "ops@example.com", "open-sesame")
	require.NoError(t, err)
	require.Equal(t, seeded.ID, user.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newMemoryAuthRepo()
	seedUser(t, repo, "ops@example.com", "open-sesame", true)
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "ops@example.com", "guess")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := NewService(newMemoryAuthRepo())

	_, err := svc.Authenticate(context.Background(), "nobody@example.com", "whatever")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	repo := newMemoryAuthRepo()
	seedUser(t, repo, "gone@example.com", "open-sesame", false)
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "gone@example.com", "open-sesame")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSessionLifecycle(t *testing.T) {
	repo := newMemoryAuthRepo()
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.RegisterSession(ctx, "sess-1", 7, time.Now().Add(time.Hour), "127.0.0.1", "go-test"))
	require.Equal(t, int64(7), repo.sessions["sess-1"])

	require.NoError(t, svc.RemoveSession(ctx, "sess-1"))
	require.NotContains(t, repo.sessions, "sess-1")
}
