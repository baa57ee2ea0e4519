package server

import (
	"strings"

	"amor/internal/featureflags"
	"amor/internal/models"

	"github.com/gofiber/fiber/v2"
)

type flagStatus struct {
	featureflags.Flag
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// GetFeatureFlags handles GET /api/admin/feature-flags
// @Summary List feature flags
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{flags=[]flagStatus}
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(uint)
	if s.featureFlags == nil {
		return c.JSON(fiber.Map{"flags": []flagStatus{}})
	}

	descriptions := make(map[string]featureflags.Flag)
	for _, f := range featureflags.Known() {
		descriptions[f.Name] = f
	}

	raw := s.featureFlags.Raw()
	out := make([]flagStatus, 0, len(raw))
	for _, name := range s.featureFlags.Names() {
		meta, ok := descriptions[name]
		if !ok {
			meta = featureflags.Flag{Name: name}
		}
		out = append(out, flagStatus{
			Flag:    meta,
			Value:   raw[name],
			Enabled: s.featureFlags.Enabled(name, userID),
		})
	}
	return c.JSON(fiber.Map{"flags": out})
}

// SetFeatureFlag handles PUT /api/admin/feature-flags/:name
// @Summary Override a feature flag until restart
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param name path string true "Flag name"
// @Param body body object{value=string} true "on, off or N%"
// @Success 200 {object} object{name=string,value=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/feature-flags/{name} [put]
func (s *Server) SetFeatureFlag(c *fiber.Ctx) error {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}
	name := strings.ToLower(strings.TrimSpace(c.Params("name")))
	if err := s.featureFlags.Set(name, req.Value); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
	}
	return c.JSON(fiber.Map{"name": name, "value": s.featureFlags.Raw()[name]})
}

// includeUnapproved reports whether a roll request may draw pending groups.
func (s *Server) includeUnapproved(c *fiber.Ctx) bool {
	if !c.QueryBool("includeUnapproved", false) {
		return false
	}
	userID, _ := s.optionalUserID(c)
	return s.featureFlags.Enabled(featureflags.PublicUnapprovedRolls, userID)
}
