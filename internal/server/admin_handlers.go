package server

import (
	"amor/internal/models"

	"github.com/gofiber/fiber/v2"
)

func groupViews(groups []models.Group) []*models.GroupView {
	views := make([]*models.GroupView, 0, len(groups))
	for i := range groups {
		views = append(views, groups[i].View())
	}
	return views
}

// GetUnapprovedGroups handles GET /api/admin/groups/unapproved
// @Summary List groups awaiting review
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{groups=[]models.GroupView}
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/groups/unapproved [get]
func (s *Server) GetUnapprovedGroups(c *fiber.Ctx) error {
	groups, err := s.groupService.Unapproved(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"groups": groupViews(groups)})
}

// ApproveGroup handles POST /api/admin/groups/:id/approve
// @Summary Approve a group
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/groups/{id}/approve [post]
func (s *Server) ApproveGroup(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.groupService.Approve(c.UserContext(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// DenyGroup handles POST /api/admin/groups/:id/deny
// @Summary Deny a group
// @Description Deletes the group and its images and notifies the owner
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/groups/{id}/deny [post]
func (s *Server) DenyGroup(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.groupService.Deny(c.UserContext(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
