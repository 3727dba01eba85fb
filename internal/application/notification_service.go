package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eduviet/eduviet-server/internal/domain/entity"
	repo "github.com/eduviet/eduviet-server/internal/domain/repository"
	"github.com/eduviet/eduviet-server/pkg/apperror"
)

// NotificationService owns in-app notifications.
type NotificationService struct {
	Store repo.Store
}

func NewNotificationService(store repo.Store) *NotificationService {
	return &NotificationService{Store: store}
}

type NotifyInput struct {
	UserID string
	Title  string
	Body   string
	Kind   string
}

func (s *NotificationService) Create(ctx context.Context, in NotifyInput) (*entity.Notification, error) {
	if in.Title == "" {
		return nil, apperror.InvalidInput("title is required")
	}
	if in.Kind == "" {
		in.Kind = "system"
	}
	if _, err := s.Store.Users().GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}
	n := &entity.Notification{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Title:     in.Title,
		Body:      in.Body,
		Kind:      in.Kind,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Store.Notifications().Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NotificationService) ListForUser(ctx context.Context, userID string, page repo.Page) ([]*entity.Notification, int, error) {
	return s.Store.Notifications().ListByUser(ctx, userID, page)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return s.Store.Notifications().MarkRead(ctx, id, userID)
}

func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	return s.Store.Notifications().Delete(ctx, id, userID)
}
