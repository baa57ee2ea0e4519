package service

import (
	"context"

	"amor/internal/middleware"
	"amor/internal/models"
	"amor/internal/repository"
)

// NotificationService reads a user's notifications. Reading is destructive:
// MarkAllRead deletes everything the user has received.
type NotificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) List(ctx context.Context, userID uint) ([]models.Notification, error) {
	if userID == 0 {
		return nil, models.NewUnauthorizedError("sign in required")
	}
	notes, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []models.Notification{}
	}
	return notes, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	if userID == 0 {
		return 0, models.NewUnauthorizedError("sign in required")
	}
	n, err := s.repo.DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		middleware.Logger.InfoContext(ctx, "notifications cleared", "user_id", userID, "count", n)
	}
	return n, nil
}
