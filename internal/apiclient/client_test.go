package apiclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"amor/internal/config"
	"amor/internal/models"
	"amor/internal/moderation"
	"amor/internal/roll"
	"amor/internal/server"
	"amor/internal/settings"
	"amor/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "Sup3r$ecret"

type liveServer struct {
	baseURL string
	db      *gorm.DB
	admin   *models.User
	member  *models.User
}

// startServer runs the real API on a loopback listener.
func startServer(t *testing.T) *liveServer {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWTSecret:       "apiclient-test-secret-0123456789abcdef",
		UploadMinFiles:  models.MinGroupImages,
		UploadMaxFiles:  models.MaxGroupImages,
		UploadMaxFileMB: 4,
		ReviewCooldown:  24 * time.Hour,
		ReviewBatchSize: 50,
	}
	srv, err := server.NewServerWithDeps(cfg, db, rdb, testutil.NewObjectStoreStub())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	app := srv.NewApp()
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	admin := testutil.CreateUser(t, db, "admin", models.RoleAdmin)
	member := testutil.CreateUser(t, db, "member", models.RoleUser)
	require.NoError(t, db.Model(&models.User{}).Where("id IN ?", []uint{admin.ID, member.ID}).
		Update("password", string(hash)).Error)

	return &liveServer{baseURL: "http://" + ln.Addr().String(), db: db, admin: admin, member: member}
}

func (s *liveServer) login(t *testing.T, u *models.User) *Client {
	t.Helper()
	c := New(s.baseURL)
	session, err := c.Login(t.Context(), u.Email, testPassword)
	require.NoError(t, err)
	require.Equal(t, u.ID, session.UserID)
	require.NotEmpty(t, c.Token())
	return c
}

func TestClient_SessionAndLogin(t *testing.T) {
	s := startServer(t)

	anon := New(s.baseURL)
	session, err := anon.Session(t.Context())
	require.NoError(t, err)
	assert.Nil(t, session)

	_, err = anon.Login(t.Context(), s.admin.Email, "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	admin := s.login(t, s.admin)
	session, err = admin.Session(t.Context())
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, models.RoleAdmin, session.Role)
}

func TestClient_RandomAndGroup(t *testing.T) {
	s := startServer(t)
	c := New(s.baseURL)

	g, err := c.Random(t.Context(), 0, false)
	require.NoError(t, err)
	assert.Nil(t, g)

	approved := testutil.CreateGroup(t, s.db, s.member, "approved", 2, true)
	pending := testutil.CreateGroup(t, s.db, s.member, "pending", 2, false)

	g, err = c.Random(t.Context(), 0, false)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, approved.ID, g.ID)

	g, err = c.Random(t.Context(), approved.ID, true)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, pending.ID, g.ID)

	got, err := c.Group(t.Context(), approved.ID)
	require.NoError(t, err)
	assert.Equal(t, "approved", got.Name)

	_, err = c.Group(t.Context(), 9999)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestClient_ReviewFlow(t *testing.T) {
	s := startServer(t)
	keep := testutil.CreateGroup(t, s.db, s.member, "keep", 2, false)
	drop := testutil.CreateGroup(t, s.db, s.member, "drop", 3, false)

	member := s.login(t, s.member)
	_, err := member.Unapproved(t.Context())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, models.CodeForbidden, apiErr.Code)

	q := moderation.NewQueue(s.login(t, s.admin), nil)
	require.NoError(t, q.Refetch(t.Context()))
	require.Len(t, q.Items(), 2)

	require.NoError(t, q.Decide(t.Context(), keep.ID, moderation.Approve))
	require.NoError(t, q.Decide(t.Context(), drop.ID, moderation.Deny))
	assert.True(t, q.Empty())
	assert.Empty(t, q.Failures())

	require.NoError(t, q.Refetch(t.Context()))
	assert.True(t, q.Empty())

	notes, err := member.Notifications(t.Context())
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "your group: drop has been rejected", notes[0].Message)

	cleared, err := member.ClearNotifications(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)
}

func TestClient_DrivesRoller(t *testing.T) {
	s := startServer(t)
	a := testutil.CreateGroup(t, s.db, s.member, "a", 2, true)
	b := testutil.CreateGroup(t, s.db, s.member, "b", 2, true)

	prefs, err := settings.Open(t.TempDir() + "/settings.json")
	require.NoError(t, err)

	r := roll.New(New(s.baseURL), prefs)
	require.NoError(t, r.Start(t.Context(), &models.GroupView{ID: a.ID}))
	require.NotNil(t, r.Next())
	assert.Equal(t, b.ID, r.Next().ID)

	got, err := r.Roll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	require.NotNil(t, r.Next())
	assert.Equal(t, a.ID, r.Next().ID)
}

func TestClient_ErrorWithoutJSONBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	t.Cleanup(ts.Close)

	err := New(ts.URL).Approve(context.Background(), 1)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestClient_SendsBearerToken(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)

	require.NoError(t, New(ts.URL, WithToken("abc")).Deny(context.Background(), 3))
	assert.Equal(t, "Bearer abc", got)
}
