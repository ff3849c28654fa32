package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/aleo-freelance/backend/internal/models"
	"github.com/aleo-freelance/backend/internal/repositories"
)

type NotificationService struct {
	notifRepo *repositories.NotificationRepo
}

func NewNotificationService(notifRepo *repositories.NotificationRepo) *NotificationService {
	return &NotificationService{notifRepo: notifRepo}
}

func (s *NotificationService) List(ctx context.Context, address string, unreadOnly bool, limit int) ([]models.Notification, error) {
	return s.notifRepo.ListByUser(ctx, address, unreadOnly, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, id uuid.UUID, address string) error {
	return s.notifRepo.MarkRead(ctx, id, address)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, address string) error {
	return s.notifRepo.MarkAllRead(ctx, address)
}

func (s *NotificationService) UnreadCount(ctx context.Context, address string) (int, error) {
	return s.notifRepo.CountUnread(ctx, address)
}
