package service

import (
	"context"
	"encoding/json"
	"time"

	"amor/internal/cache"
	"amor/internal/middleware"
	"amor/internal/models"
	"amor/internal/objectstore"
	"amor/internal/observability"
	"amor/internal/repository"
	"amor/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// EventNotification is the realtime event type carrying a new notification.
const EventNotification = "notification"

// UserPublisher delivers a realtime payload to one user's channel.
type UserPublisher interface {
	PublishUser(ctx context.Context, userID uint, payload string) error
}

type GroupServiceOptions struct {
	Cooldown    time.Duration
	BatchSize   int
	Constraints objectstore.Constraints
	// StampViews reports whether listing the review batch should stamp last_reviewed_at.
	StampViews func(userID uint) bool
	Now        func() time.Time
}

type GroupService struct {
	groups    repository.GroupRepository
	store     objectstore.Store
	publisher UserPublisher
	isAdmin   func(ctx context.Context, userID uint) (bool, error)
	opts      GroupServiceOptions
}

type CreateGroupInput struct {
	UserID uint
	Name   string
	Tags   []string
	Files  []objectstore.File
}

func NewGroupService(
	groups repository.GroupRepository,
	store objectstore.Store,
	publisher UserPublisher,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
	opts GroupServiceOptions,
) *GroupService {
	if opts.Cooldown <= 0 {
		opts.Cooldown = 24 * time.Hour
	}
	if opts.BatchSize < 0 {
		opts.BatchSize = 0
	}
	if opts.Constraints.MaxFiles == 0 {
		opts.Constraints = objectstore.DefaultConstraints()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &GroupService{
		groups:    groups,
		store:     store,
		publisher: publisher,
		isAdmin:   isAdmin,
		opts:      opts,
	}
}

// Create validates the input, uploads the files and persists the group with its images.
// Validation errors are reported before any upload. When persistence fails the uploaded
// objects are deleted on a best-effort basis.
func (s *GroupService) Create(ctx context.Context, in CreateGroupInput) (*models.Group, error) {
	span, ctx := observability.NewSpan(ctx, "GroupService.Create")
	defer span.End()
	span.AddAttributes(attribute.Int("group.files", len(in.Files)))

	group, err := s.create(ctx, in)
	span.SetError(err)
	observability.GroupSubmissionsTotal.WithLabelValues(submissionOutcome(err)).Inc()
	return group, err
}

func (s *GroupService) create(ctx context.Context, in CreateGroupInput) (*models.Group, error) {
	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("sign in to create a group")
	}
	fields, err := validation.NormalizeGroupInput(in.Name, in.Tags)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := s.opts.Constraints.Check(in.Files); err != nil {
		return nil, err
	}

	objects, err := s.store.Upload(ctx, in.Files)
	if err != nil {
		if models.HasCode(err, models.CodeValidation) {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}

	group := &models.Group{
		Name:   fields.Name,
		Tags:   fields.Tags,
		UserID: in.UserID,
		Images: make([]models.Image, 0, len(objects)),
	}
	for _, obj := range objects {
		group.Images = append(group.Images, models.Image{ID: obj.Key, URL: obj.URL})
	}

	if err := s.groups.CreateWithImages(ctx, group); err != nil {
		keys := group.ImageKeys()
		if delErr := s.store.Delete(context.WithoutCancel(ctx), keys); delErr != nil {
			middleware.Logger.WarnContext(ctx, "object purge failed",
				"keys", keys,
				"error", delErr,
			)
		}
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "group created",
		"group_id", group.ID,
		"user_id", in.UserID,
		"images", len(group.Images),
	)
	return group, nil
}

func submissionOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case models.HasCode(err, models.CodeValidation):
		return "invalid"
	case models.HasCode(err, models.CodeUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}

func (s *GroupService) Get(ctx context.Context, id uint) (*models.Group, error) {
	return s.groups.GetByID(ctx, id)
}

// View returns the public view of a group, served from the group cache when warm.
func (s *GroupService) View(ctx context.Context, id uint) (*models.GroupView, error) {
	var view models.GroupView
	err := cache.CacheAside(ctx, cache.GroupKey(id), &view, cache.GroupTTL, func() error {
		group, err := s.groups.GetByID(ctx, id)
		if err != nil {
			return err
		}
		view = *group.View()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Random returns a uniformly chosen eligible group other than previousID, or nil when none is eligible.
func (s *GroupService) Random(ctx context.Context, previousID *uint, includeUnapproved bool) (*models.Group, error) {
	group, err := s.groups.Random(ctx, previousID, includeUnapproved)
	result := "hit"
	switch {
	case err != nil:
		result = "error"
	case group == nil:
		result = "empty"
	}
	observability.GroupRollsTotal.WithLabelValues(rollType(includeUnapproved), result).Inc()
	return group, err
}

func rollType(includeUnapproved bool) string {
	if includeUnapproved {
		return "all"
	}
	return "approved"
}

// Unapproved returns the pending groups whose cool-down window has elapsed.
func (s *GroupService) Unapproved(ctx context.Context, actorID uint) ([]models.Group, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	now := s.opts.Now().UTC()
	groups, err := s.groups.ListUnapproved(ctx, now.Add(-s.opts.Cooldown), s.opts.BatchSize)
	if err != nil {
		return nil, err
	}

	if s.opts.StampViews != nil && s.opts.StampViews(actorID) && len(groups) > 0 {
		ids := make([]uint, 0, len(groups))
		for _, g := range groups {
			ids = append(ids, g.ID)
		}
		if err := s.groups.MarkReviewed(ctx, ids, now); err != nil {
			middleware.Logger.WarnContext(ctx, "review stamp failed", "error", err)
		}
	}
	return groups, nil
}

// Approve marks a pending group approved. Approving twice is harmless.
func (s *GroupService) Approve(ctx context.Context, actorID, groupID uint) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		observability.GroupReviewsTotal.WithLabelValues("approve", "forbidden").Inc()
		return err
	}

	err := s.groups.Approve(ctx, groupID, s.opts.Now().UTC())
	observability.GroupReviewsTotal.WithLabelValues("approve", observability.Outcome(err)).Inc()
	if err != nil {
		return err
	}

	cache.InvalidateGroup(ctx, groupID)
	middleware.Logger.InfoContext(ctx, "group approved", "group_id", groupID, "admin_id", actorID)
	return nil
}

// Deny deletes a pending group with its images and notifies the owner.
// The delete, object purge and notification insert commit or fail together.
func (s *GroupService) Deny(ctx context.Context, actorID, groupID uint) (err error) {
	span, ctx := observability.NewSpan(ctx, "GroupService.Deny")
	defer func() {
		span.SetError(err)
		span.End()
	}()
	span.AddAttributes(attribute.Int64("group.id", int64(groupID)))

	if err := s.requireAdmin(ctx, actorID); err != nil {
		observability.GroupReviewsTotal.WithLabelValues("deny", "forbidden").Inc()
		return err
	}

	group, note, err := s.groups.Reject(ctx, groupID, s.store.Delete)
	observability.GroupReviewsTotal.WithLabelValues("deny", observability.Outcome(err)).Inc()
	if err != nil {
		return err
	}

	cache.InvalidateGroup(ctx, groupID)
	middleware.Logger.InfoContext(ctx, "group denied",
		"group_id", groupID,
		"owner_id", group.UserID,
		"admin_id", actorID,
		"images", len(group.Images),
	)
	s.publish(ctx, note)
	return nil
}

func (s *GroupService) publish(ctx context.Context, note *models.Notification) {
	if s.publisher == nil || note == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type":    EventNotification,
		"payload": note,
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to marshal notification event", "error", err)
		return
	}
	err = s.publisher.PublishUser(ctx, note.UserID, string(payload))
	observability.NotificationsPublished.WithLabelValues(string(note.Type), observability.Outcome(err)).Inc()
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish notification",
			"user_id", note.UserID,
			"error", err,
		)
	}
}

func (s *GroupService) requireAdmin(ctx context.Context, userID uint) error {
	if userID == 0 {
		return models.NewUnauthorizedError("sign in required")
	}
	if s.isAdmin == nil {
		return models.NewForbiddenError("admin access required")
	}
	ok, err := s.isAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewForbiddenError("admin access required")
	}
	return nil
}
