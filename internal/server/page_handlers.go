package server

import (
	"amor/internal/models"

	"github.com/gofiber/fiber/v2"
)

// LandingPage handles GET /
func (s *Server) LandingPage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"title":       "Amor",
		"description": "Roll through matched image groups. Submit your own for review.",
		"rollUrl":     "/roll",
	})
}

// RollPage handles GET /roll. With ?id= it shows that group, otherwise a random one.
// The next group is prefetched so clients can roll without waiting.
func (s *Server) RollPage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	include := s.includeUnapproved(c)

	id, err := parseOptionalID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}

	var current *models.Group
	if id != nil {
		current, err = s.groupService.Get(ctx, *id)
		if err != nil && !models.HasCode(err, models.CodeNotFound) {
			return respondServiceError(c, err)
		}
	} else {
		current, err = s.groupService.Random(ctx, nil, include)
		if err != nil {
			return respondServiceError(c, err)
		}
	}

	var prev *uint
	if current != nil {
		prev = &current.ID
	}
	next, err := s.groupService.Random(ctx, prev, include)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"group":    current.View(),
		"next":     next.View(),
		"rollType": "random",
	})
}

// GroupPage handles GET /:id
func (s *Server) GroupPage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.groupService.View(c.UserContext(), id)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return c.JSON(fiber.Map{"group": nil})
		}
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"group":    view,
		"rollType": "redirect",
	})
}

// AdminPage handles GET /admin. Anonymous and non-admin callers get the forbidden state.
func (s *Server) AdminPage(c *fiber.Ctx) error {
	forbidden := func() error {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"state": "forbidden"})
	}

	userID, ok := s.optionalUserID(c)
	if !ok {
		return forbidden()
	}
	groups, err := s.groupService.Unapproved(c.UserContext(), userID)
	if err != nil {
		if models.HasCode(err, models.CodeForbidden) || models.HasCode(err, models.CodeUnauthorized) {
			return forbidden()
		}
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"groups": groupViews(groups)})
}
