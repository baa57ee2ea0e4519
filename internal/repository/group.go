package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"amor/internal/database"
	"amor/internal/models"
	"amor/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurgeFunc deletes stored objects by key. It runs inside the reject
// transaction; an error rolls the rejection back.
type PurgeFunc func(ctx context.Context, keys []string) error

// GroupRepository is the persistence contract for groups and their images.
type GroupRepository interface {
	CreateWithImages(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id uint) (*models.Group, error)
	ListUnapproved(ctx context.Context, reviewedBefore time.Time, limit int) ([]models.Group, error)
	Approve(ctx context.Context, id uint, at time.Time) error
	Reject(ctx context.Context, id uint, purge PurgeFunc) (*models.Group, *models.Notification, error)
	Random(ctx context.Context, previousID *uint, includeUnapproved bool) (*models.Group, error)
	MarkReviewed(ctx context.Context, ids []uint, at time.Time) error
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository returns a GroupRepository backed by db.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func withOwnerAndImages(db *gorm.DB) *gorm.DB {
	return db.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC").Order("id ASC")
	}).Preload("User")
}

func (r *groupRepository) CreateWithImages(ctx context.Context, group *models.Group) error {
	defer observability.TrackQuery("create", "groups")()

	if n := len(group.Images); n < models.MinGroupImages || n > models.MaxGroupImages {
		return models.NewValidationError(fmt.Sprintf("a group needs between %d and %d images, got %d", models.MinGroupImages, models.MaxGroupImages, n))
	}

	images := group.Images
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group.ApprovedAt = nil
		group.LastReviewedAt = nil
		if err := tx.Omit(clause.Associations).Create(group).Error; err != nil {
			return err
		}
		for i := range images {
			images[i].GroupID = group.ID
		}
		return tx.Create(&images).Error
	})
	if err != nil {
		group.ID = 0
		return models.NewInternalError(err)
	}
	group.Images = images
	return nil
}

func (r *groupRepository) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	defer observability.TrackQuery("get", "groups")()

	var group models.Group
	if err := withOwnerAndImages(readDB(r.db)).WithContext(ctx).First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Group", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &group, nil
}

// ListUnapproved returns pending groups whose last review is older than reviewedBefore, oldest first.
func (r *groupRepository) ListUnapproved(ctx context.Context, reviewedBefore time.Time, limit int) ([]models.Group, error) {
	defer observability.TrackQuery("list_unapproved", "groups")()

	groups := []models.Group{}
	q := withOwnerAndImages(r.db).WithContext(ctx).
		Where("approved_at IS NULL").
		Where("last_reviewed_at IS NULL OR last_reviewed_at <= ?", reviewedBefore).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&groups).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return groups, nil
}

// Approve keeps the first approval time so repeating it only moves last_reviewed_at.
func (r *groupRepository) Approve(ctx context.Context, id uint, at time.Time) error {
	defer observability.TrackQuery("approve", "groups")()

	res := r.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", id).Updates(map[string]interface{}{
		"approved_at":      gorm.Expr("COALESCE(approved_at, ?)", at),
		"last_reviewed_at": at,
	})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Group", id)
	}
	return nil
}

func (r *groupRepository) Reject(ctx context.Context, id uint, purge PurgeFunc) (*models.Group, *models.Notification, error) {
	defer observability.TrackQuery("reject", "groups")()
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "Reject", "groups")
	defer span.End()

	var (
		group models.Group
		note  *models.Notification
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if database.IsPostgres(tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Preload("Images").First(&group, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Group", id)
			}
			return err
		}
		if !group.Pending() {
			return models.NewConflictError(fmt.Sprintf("group %d is already approved", id))
		}

		if err := tx.Where("group_id = ?", group.ID).Delete(&models.Image{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Group{}, group.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Group", id)
		}

		if purge != nil {
			if err := purge(ctx, group.ImageKeys()); err != nil {
				return fmt.Errorf("purge images: %w", err)
			}
		}

		note = models.GroupRejectedNotification(&group)
		return NewNotificationRepository(tx).Create(ctx, note)
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, nil, err
		}
		return nil, nil, models.NewInternalError(err)
	}
	return &group, note, nil
}

// Random picks one eligible group in a single statement. A nil group means the eligible set is empty.
func (r *groupRepository) Random(ctx context.Context, previousID *uint, includeUnapproved bool) (*models.Group, error) {
	defer observability.TrackQuery("random", "groups")()
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "Random", "groups")
	defer span.End()

	db := readDB(r.db).WithContext(ctx)
	if database.IsPostgres(db) {
		return r.randomViaProcedure(db, previousID, includeUnapproved)
	}

	q := withOwnerAndImages(db)
	if !includeUnapproved {
		q = q.Where("approved_at IS NOT NULL")
	}
	if previousID != nil {
		q = q.Where("id <> ?", *previousID)
	}

	var groups []models.Group
	if err := q.Order("RANDOM()").Limit(1).Find(&groups).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(groups) == 0 {
		return nil, nil
	}
	return &groups[0], nil
}

func (r *groupRepository) randomViaProcedure(db *gorm.DB, previousID *uint, includeUnapproved bool) (*models.Group, error) {
	var prev interface{}
	if previousID != nil {
		prev = int64(*previousID)
	}

	var ids []uint
	if err := db.Raw("SELECT id FROM get_random_group(?, ?)", prev, includeUnapproved).Scan(&ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var groups []models.Group
	if err := withOwnerAndImages(db).Where("id = ?", ids[0]).Limit(1).Find(&groups).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	// denied between pick and load
	if len(groups) == 0 {
		return nil, nil
	}
	return &groups[0], nil
}

// MarkReviewed stamps last_reviewed_at on the still-pending groups among ids.
func (r *groupRepository) MarkReviewed(ctx context.Context, ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.Group{}).
		Where("id IN ?", ids).
		Where("approved_at IS NULL").
		Update("last_reviewed_at", at).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
