package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/clock"
	apperrors "github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memInbox struct {
	items      []*domain.Notification
	lastFilter domain.InboxFilter
}

func (m *memInbox) FindByID(ctx context.Context, userID, id primitive.ObjectID) (*domain.Notification, error) {
	for _, n := range m.items {
		if n.ID == id && n.UserID == userID {
			return n, nil
		}
	}
	return nil, apperrors.NewNotFoundError("notification not found", nil)
}

func (m *memInbox) List(ctx context.Context, f domain.InboxFilter) ([]*domain.Notification, int64, error) {
	m.lastFilter = f
	var out []*domain.Notification
	for _, n := range m.items {
		if n.UserID == f.UserID && (!f.UnreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memInbox) MarkRead(ctx context.Context, userID, id primitive.ObjectID, at time.Time) error {
	n, err := m.FindByID(ctx, userID, id)
	if err != nil {
		return err
	}
	n.IsRead = true
	n.ReadAt = &at
	return nil
}

func (m *memInbox) MarkAllRead(ctx context.Context, userID primitive.ObjectID, at time.Time) (int64, error) {
	var updated int64
	for _, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
			updated++
		}
	}
	return updated, nil
}

func (m *memInbox) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	var count int64
	for _, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

type unreadLog map[primitive.ObjectID]int64

func (u unreadLog) PublishUnreadCount(userID primitive.ObjectID, count int64) {
	u[userID] = count
}

func TestNotificationService_Inbox(t *testing.T) {
	userID := primitive.NewObjectID()
	other := primitive.NewObjectID()
	inbox := &memInbox{items: []*domain.Notification{
		{ID: primitive.NewObjectID(), UserID: userID, Type: domain.TypeOrderShipped},
		{ID: primitive.NewObjectID(), UserID: userID, Type: domain.TypeBookingReminder},
		{ID: primitive.NewObjectID(), UserID: other, Type: domain.TypeBookingReminder},
	}}
	published := unreadLog{}
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc := NewNotificationService(inbox, published, clock.NewFake(now), logger.NewNop())
	ctx := context.Background()

	items, total, err := svc.GetNotifications(ctx, domain.InboxFilter{UserID: userID, PageSize: 500})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, inbox.lastFilter.Page)
	assert.Equal(t, 20, inbox.lastFilter.PageSize)

	_, err = svc.GetNotification(ctx, userID, inbox.items[2].ID)
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, svc.MarkRead(ctx, userID, inbox.items[0].ID))
	assert.True(t, inbox.items[0].IsRead)
	assert.Equal(t, now, *inbox.items[0].ReadAt)
	assert.EqualValues(t, 1, published[userID])

	count, err := svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	updated, err := svc.MarkAllRead(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)
	assert.EqualValues(t, 0, published[userID])
	assert.False(t, inbox.items[2].IsRead)
}
