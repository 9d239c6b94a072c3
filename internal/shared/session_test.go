package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionManager(client, "meridian_session", "secret", time.Hour, false), mr
}

func commitSession(t *testing.T, sm *SessionManager, sess *Session) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, sm.Commit(context.Background(), rec, req, sess))
}

func TestSessionRoundTrip(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.True(t, sess.isNew)

	sess.SetUser("42")
	sess.Set("org", "ADMN")
	commitSession(t, sm, sess)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(ctx, req2)
	require.NoError(t, err)
	require.Equal(t, "42", loaded.User())
	require.Equal(t, "ADMN", loaded.Get("org"))
}

func TestPurgeUserSessions(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	mine, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	mine.SetUser("7")
	commitSession(t, sm, mine)

	other, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	other.SetUser("8")
	commitSession(t, sm, other)

	require.NoError(t, sm.PurgeUserSessions(ctx, "7"))
	require.False(t, mr.Exists(sessionKeyPrefix+mine.ID))
	require.True(t, mr.Exists(sessionKeyPrefix+other.ID))
}

func TestDestroyRemovesSession(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("9")
	commitSession(t, sm, sess)
	require.True(t, mr.Exists(sessionKeyPrefix+sess.ID))

	sm.Destroy(sess)
	commitSession(t, sm, sess)
	require.False(t, mr.Exists(sessionKeyPrefix+sess.ID))
}
