package service

import (
	"context"
	"fmt"
	"time"

	"taskdesk/internal/domain"
)

// ListNotifications returns a user's notifications, optionally only the
// unread ones.
func (s *Service) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	notifications, err := s.store.ListNotifications(ctx, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead stamps a notification as read. Marking twice keeps
// the original read time.
func (s *Service) MarkNotificationRead(ctx context.Context, notificationID string) error {
	if err := s.store.MarkNotificationRead(ctx, notificationID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}
