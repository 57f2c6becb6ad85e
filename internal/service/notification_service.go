package service

import (
	"context"
	"time"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/clock"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InboxStore reads and updates a user's in-app notifications
type InboxStore interface {
	FindByID(ctx context.Context, userID, id primitive.ObjectID) (*domain.Notification, error)
	List(ctx context.Context, f domain.InboxFilter) ([]*domain.Notification, int64, error)
	MarkRead(ctx context.Context, userID, id primitive.ObjectID, at time.Time) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID, at time.Time) (int64, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// UnreadPublisher pushes unread counters to live sessions
type UnreadPublisher interface {
	PublishUnreadCount(userID primitive.ObjectID, count int64)
}

// NotificationService handles the in-app inbox
type NotificationService struct {
	store     InboxStore
	publisher UnreadPublisher
	clock     clock.Clock
	log       *logger.Logger
}

// NewNotificationService creates a new notification service. publisher may be nil.
func NewNotificationService(store InboxStore, publisher UnreadPublisher, clk clock.Clock, log *logger.Logger) *NotificationService {
	return &NotificationService{
		store:     store,
		publisher: publisher,
		clock:     clk,
		log:       log,
	}
}

// GetNotifications retrieves notifications with pagination
func (s *NotificationService) GetNotifications(ctx context.Context, f domain.InboxFilter) ([]*domain.Notification, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
	return s.store.List(ctx, f)
}

// GetNotification retrieves a single notification owned by the user
func (s *NotificationService) GetNotification(ctx context.Context, userID, id primitive.ObjectID) (*domain.Notification, error) {
	return s.store.FindByID(ctx, userID, id)
}

// MarkRead marks one notification as read
func (s *NotificationService) MarkRead(ctx context.Context, userID, id primitive.ObjectID) error {
	if err := s.store.MarkRead(ctx, userID, id, s.clock.Now()); err != nil {
		return err
	}
	s.publishUnread(ctx, userID)
	return nil
}

// MarkAllRead marks every unread notification of the user as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	updated, err := s.store.MarkAllRead(ctx, userID, s.clock.Now())
	if err != nil {
		return 0, err
	}
	s.log.Info("Marked notifications as read", "user_id", userID.Hex(), "count", updated)
	s.publishUnread(ctx, userID)
	return updated, nil
}

// UnreadCount returns the number of unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.store.UnreadCount(ctx, userID)
}

func (s *NotificationService) publishUnread(ctx context.Context, userID primitive.ObjectID) {
	if s.publisher == nil {
		return
	}
	count, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		s.log.Warn("Failed to refresh unread count", "user_id", userID.Hex(), "error", err)
		return
	}
	s.publisher.PublishUnreadCount(userID, count)
}
