package server

import (
	"fmt"
	"net/http"
	"testing"

	"amor/internal/models"
	"amor/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageState struct {
	Group    *models.GroupView `json:"group"`
	Next     *models.GroupView `json:"next"`
	RollType string            `json:"rollType"`
}

func TestLandingPage(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(http.MethodGet, "/", nil, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "/roll", body["rollUrl"])
	assert.NotEmpty(t, body["title"])
}

func TestRollPage(t *testing.T) {
	f := newAPIFixture(t)
	a := testutil.CreateGroup(t, f.db, f.member, "first", 2, true)
	b := testutil.CreateGroup(t, f.db, f.member, "second", 2, true)

	resp := f.do(http.MethodGet, fmt.Sprintf("/roll?id=%d", a.ID), nil, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode[pageState](t, resp)
	assert.Equal(t, "random", state.RollType)
	require.NotNil(t, state.Group)
	require.NotNil(t, state.Next)
	assert.Equal(t, a.ID, state.Group.ID)
	assert.Equal(t, b.ID, state.Next.ID)

	resp = f.do(http.MethodGet, "/roll", nil, "", nil)
	state = decode[pageState](t, resp)
	require.NotNil(t, state.Group)
	require.NotNil(t, state.Next)
	assert.NotEqual(t, state.Group.ID, state.Next.ID)
}

func TestRollPage_Empty(t *testing.T) {
	f := newAPIFixture(t)
	testutil.CreateGroup(t, f.db, f.member, "pending", 2, false)

	resp := f.do(http.MethodGet, "/roll", nil, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode[pageState](t, resp)
	assert.Nil(t, state.Group)
	assert.Nil(t, state.Next)

	resp = f.do(http.MethodGet, "/roll?includeUnapproved=true", nil, "", nil)
	state = decode[pageState](t, resp)
	assert.NotNil(t, state.Group)
}

func TestGroupPage(t *testing.T) {
	f := newAPIFixture(t)
	g := testutil.CreateGroup(t, f.db, f.member, "direct", 2, true)

	resp := f.do(http.MethodGet, fmt.Sprintf("/%d", g.ID), nil, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode[pageState](t, resp)
	assert.Equal(t, "redirect", state.RollType)
	require.NotNil(t, state.Group)
	assert.Equal(t, g.ID, state.Group.ID)

	resp = f.do(http.MethodGet, "/9999", nil, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, decode[pageState](t, resp).Group)
}

func TestAdminPage(t *testing.T) {
	f := newAPIFixture(t)
	testutil.CreateGroup(t, f.db, f.member, "queued", 2, false)

	for _, as := range []*models.User{nil, f.member} {
		resp := f.do(http.MethodGet, "/admin", nil, "", as)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, map[string]string{"state": "forbidden"}, decode[map[string]string](t, resp))
	}

	resp := f.do(http.MethodGet, "/admin", nil, "", f.admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[groupsResponse](t, resp)
	require.Len(t, out.Groups, 1)
	assert.Equal(t, "queued", out.Groups[0].Name)
}

func TestWebsocket_RequiresTicket(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(http.MethodGet, "/api/ws", nil, "", f.member)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthLive(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(http.MethodGet, "/health/live", nil, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
