package server

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"amor/internal/featureflags"
	"amor/internal/models"
	"amor/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type groupsResponse struct {
	Groups []models.GroupView `json:"groups"`
}

func TestUnapprovedGroups_AdminOnly(t *testing.T) {
	f := newAPIFixture(t)
	testutil.CreateGroup(t, f.db, f.member, "waiting", 2, false)
	testutil.CreateGroup(t, f.db, f.member, "done", 2, true)

	resp := f.do(http.MethodGet, "/api/admin/groups/unapproved", nil, "", f.admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[groupsResponse](t, resp)
	require.Len(t, out.Groups, 1)
	assert.Equal(t, "waiting", out.Groups[0].Name)

	resp = f.do(http.MethodGet, "/api/admin/groups/unapproved", nil, "", f.member)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(http.MethodGet, "/api/admin/groups/unapproved", nil, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestApproveGroup(t *testing.T) {
	f := newAPIFixture(t)
	g := testutil.CreateGroup(t, f.db, f.member, "approve-me", 2, false)
	path := fmt.Sprintf("/api/admin/groups/%d/approve", g.ID)

	resp := f.do(http.MethodPost, path, nil, "", f.member)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	for i := 0; i < 2; i++ {
		resp = f.do(http.MethodPost, path, nil, "", f.admin)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	var stored models.Group
	require.NoError(t, f.db.First(&stored, g.ID).Error)
	assert.False(t, stored.Pending())

	resp = f.do(http.MethodPost, fmt.Sprintf("/api/admin/groups/%d/deny", g.ID), nil, "", f.admin)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.do(http.MethodPost, "/api/admin/groups/9999/approve", nil, "", f.admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDenyGroup_NotifiesOwner(t *testing.T) {
	f := newAPIFixture(t)
	g := testutil.CreateGroup(t, f.db, f.member, "deny-me", 3, false)

	resp := f.do(http.MethodPost, fmt.Sprintf("/api/admin/groups/%d/deny", g.ID), nil, "", f.admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(http.MethodGet, fmt.Sprintf("/api/groups/%d", g.ID), nil, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Len(t, f.store.Deleted(), 3)

	type notesResponse struct {
		Notifications []models.Notification `json:"notifications"`
	}
	resp = f.do(http.MethodGet, "/api/notifications", nil, "", f.member)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	notes := decode[notesResponse](t, resp)
	require.Len(t, notes.Notifications, 1)
	assert.Equal(t, "your group: deny-me has been rejected", notes.Notifications[0].Message)
	assert.Equal(t, models.NotificationGroupRejected, notes.Notifications[0].Type)

	resp = f.do(http.MethodGet, "/api/notifications", nil, "", f.admin)
	assert.Empty(t, decode[notesResponse](t, resp).Notifications)

	resp = f.do(http.MethodDelete, "/api/notifications", nil, "", f.member)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]float64{"cleared": 1}, decode[map[string]float64](t, resp))

	resp = f.do(http.MethodGet, "/api/notifications", nil, "", f.member)
	assert.Empty(t, decode[notesResponse](t, resp).Notifications)

	resp = f.do(http.MethodPost, fmt.Sprintf("/api/admin/groups/%d/deny", g.ID), nil, "", f.admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFeatureFlags_AdminOnly(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(http.MethodGet, "/api/admin/feature-flags", nil, "", f.admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[struct {
		Flags []flagStatus `json:"flags"`
	}](t, resp)
	require.Len(t, out.Flags, 2)
	assert.Equal(t, featureflags.PublicUnapprovedRolls, out.Flags[0].Name)
	assert.True(t, out.Flags[0].Enabled)
	assert.NotEmpty(t, out.Flags[0].Description)
	assert.Equal(t, featureflags.ReviewViewStamp, out.Flags[1].Name)
	assert.False(t, out.Flags[1].Enabled)

	resp = f.do(http.MethodGet, "/api/admin/feature-flags", nil, "", f.member)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSetFeatureFlag_DisablesPublicUnapprovedRolls(t *testing.T) {
	f := newAPIFixture(t)
	testutil.CreateGroup(t, f.db, f.member, "pending", 2, false)

	type rollResponse struct {
		Group *models.GroupView `json:"group"`
	}
	resp := f.do(http.MethodGet, "/api/groups/random?includeUnapproved=true", nil, "", nil)
	require.NotNil(t, decode[rollResponse](t, resp).Group)

	resp = f.do(http.MethodPut, "/api/admin/feature-flags/public_unapproved_rolls",
		strings.NewReader(`{"value":"off"}`), fiber.MIMEApplicationJSON, f.member)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(http.MethodPut, "/api/admin/feature-flags/public_unapproved_rolls",
		strings.NewReader(`{"value":"sometimes"}`), fiber.MIMEApplicationJSON, f.admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(http.MethodPut, "/api/admin/feature-flags/public_unapproved_rolls",
		strings.NewReader(`{"value":"off"}`), fiber.MIMEApplicationJSON, f.admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"name": "public_unapproved_rolls", "value": "off"}, decode[map[string]string](t, resp))

	resp = f.do(http.MethodGet, "/api/groups/random?includeUnapproved=true", nil, "", nil)
	assert.Nil(t, decode[rollResponse](t, resp).Group)
}
