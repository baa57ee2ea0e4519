package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"amor/internal/models"
	"amor/internal/objectstore"
	"amor/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateGroup handles POST /api/groups
// @Summary Submit a group
// @Description Upload 2 to 4 images as a named, tagged group awaiting review
// @Tags groups
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param name formData string true "Group name"
// @Param tags[] formData []string false "Tags"
// @Param files formData file true "Images (2-4)"
// @Success 201 {object} object{success=bool,group=models.GroupView}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 500 {object} object{success=bool,error=string}
// @Router /groups [post]
func (s *Server) CreateGroup(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return groupFailure(c, models.NewValidationError("Expected multipart form data"))
	}

	files, err := readFormFiles(form, s.config.UploadMaxFileBytes())
	if err != nil {
		return groupFailure(c, err)
	}

	group, err := s.groupService.Create(c.UserContext(), service.CreateGroupInput{
		UserID: currentUserID(c),
		Name:   firstValue(form.Value["name"]),
		Tags:   formTags(form),
		Files:  files,
	})
	if err != nil {
		return groupFailure(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"group":   group.View(),
	})
}

func groupFailure(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	msg := "Failed to create group"
	if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
		msg = appErr.Message
	}
	return c.Status(mapServiceError(err)).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

func firstValue(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// formTags accepts both "tags[]" and "tags" fields. A single comma separated
// value is split.
func formTags(form *multipart.Form) []string {
	raw := append([]string{}, form.Value["tags[]"]...)
	raw = append(raw, form.Value["tags"]...)
	if len(raw) == 1 && strings.Contains(raw[0], ",") {
		raw = strings.Split(raw[0], ",")
	}
	return raw
}

func readFormFiles(form *multipart.Form, maxBytes int64) ([]objectstore.File, error) {
	headers := append([]*multipart.FileHeader{}, form.File["files"]...)
	headers = append(headers, form.File["files[]"]...)

	files := make([]objectstore.File, 0, len(headers))
	for _, fh := range headers {
		if maxBytes > 0 && fh.Size > maxBytes {
			return nil, models.NewValidationError(fmt.Sprintf("file %q is too large (max %dMB)", fh.Filename, maxBytes/(1024*1024)))
		}
		f, err := fh.Open()
		if err != nil {
			return nil, models.NewValidationError(fmt.Sprintf("file %q could not be read", fh.Filename))
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, models.NewValidationError(fmt.Sprintf("file %q could not be read", fh.Filename))
		}
		files = append(files, objectstore.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Content:     content,
		})
	}
	return files, nil
}

// GetGroup handles GET /api/groups/:id
// @Summary Get group
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} models.GroupView
// @Failure 404 {object} models.ErrorResponse
// @Router /groups/{id} [get]
func (s *Server) GetGroup(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.groupService.View(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(view)
}

// RandomGroup handles GET /api/groups/random
// @Summary Roll a random group
// @Description Picks a group uniformly at random, excluding previousId
// @Tags groups
// @Produce json
// @Param previousId query int false "Group to exclude"
// @Param includeUnapproved query bool false "Include pending groups"
// @Success 200 {object} object{group=models.GroupView}
// @Failure 400 {object} models.ErrorResponse
// @Router /groups/random [get]
func (s *Server) RandomGroup(c *fiber.Ctx) error {
	prev, err := parseOptionalID(c, "previousId")
	if err != nil {
		return respondServiceError(c, err)
	}
	group, err := s.groupService.Random(c.UserContext(), prev, s.includeUnapproved(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"group": group.View()})
}
