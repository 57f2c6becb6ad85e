package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type panickySender struct {
	victim primitive.ObjectID
	next   NotificationSender
}

func (p panickySender) Send(ctx context.Context, req *domain.SendRequest) (*domain.SendResult, error) {
	if req.UserID == p.victim {
		panic("boom")
	}
	return p.next.Send(ctx, req)
}

func TestBulkDispatcher_SendBulk_AggregatesPerRecipient(t *testing.T) {
	f := newDispatcherFixture(t)
	missing := primitive.NewObjectID()
	second := &domain.User{ID: primitive.NewObjectID(), Email: "lan@example.com", IsActive: true}
	f.users[second.ID] = second

	bulk := NewBulkDispatcher(f.dispatcher, 2, logger.NewNop())
	result := bulk.SendBulk(context.Background(), &domain.BulkRequest{
		UserIDs: []primitive.ObjectID{f.user.ID, missing, second.ID},
		Type:    domain.TypeSystemUpdate,
		Title:   "Scheduled maintenance",
		Message: "The marketplace will be read-only on Sunday",
	})

	require.NotEmpty(t, result.BatchID)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Results, 3)

	assert.Equal(t, f.user.ID, result.Results[0].UserID)
	assert.True(t, result.Results[0].Success)
	assert.NotEmpty(t, result.Results[0].NotificationID)

	assert.Equal(t, missing, result.Results[1].UserID)
	assert.False(t, result.Results[1].Success)
	assert.NotEmpty(t, result.Results[1].Error)

	assert.Equal(t, second.ID, result.Results[2].UserID)
	assert.True(t, result.Results[2].Success)
	assert.True(t, result.Results[2].ChannelResults.Email.Success)
	assert.Nil(t, result.Results[2].ChannelResults.SMS)

	assert.Len(t, f.notifications.created, 2)
}

func TestBulkDispatcher_SendBulk_RecoversPanics(t *testing.T) {
	f := newDispatcherFixture(t)
	victim := primitive.NewObjectID()

	bulk := NewBulkDispatcher(panickySender{victim: victim, next: f.dispatcher}, 0, logger.NewNop())
	result := bulk.SendBulk(context.Background(), &domain.BulkRequest{
		UserIDs: []primitive.ObjectID{victim, f.user.ID},
		Type:    domain.TypeSystemUpdate,
		Title:   "Release notes",
	})

	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Contains(t, result.Results[0].Error, "boom")
	assert.True(t, result.Results[1].Success)
}

func TestBulkDispatcher_SendBulk_Empty(t *testing.T) {
	bulk := NewBulkDispatcher(newDispatcherFixture(t).dispatcher, 4, logger.NewNop())
	result := bulk.SendBulk(context.Background(), &domain.BulkRequest{Type: domain.TypeSystemUpdate, Title: "noop"})

	assert.Zero(t, result.Total)
	assert.Empty(t, result.Results)
}

func TestBulkDispatcher_SendBulk_ForceAppliesToEveryRecipient(t *testing.T) {
	f := newDispatcherFixture(t)
	second := &domain.User{
		ID:         primitive.NewObjectID(),
		Email:      "lan@example.com",
		Phone:      "+84900000002",
		PushTokens: []string{"token-2"},
		IsActive:   true,
	}
	f.users[second.ID] = second
	for _, id := range []primitive.ObjectID{f.user.ID, second.ID} {
		f.prefs[id] = &domain.NotificationPreferences{
			UserID: id,
			Email:  domain.ChannelPreference{Enabled: false},
			SMS:    domain.ChannelPreference{Enabled: false},
			Push:   domain.ChannelPreference{Enabled: false},
		}
	}

	bulk := NewBulkDispatcher(f.dispatcher, 2, logger.NewNop())
	result := bulk.SendBulk(context.Background(), &domain.BulkRequest{
		UserIDs:       []primitive.ObjectID{f.user.ID, second.ID},
		Type:          domain.TypeSecurityAlert,
		Title:         "New sign-in",
		Priority:      domain.PriorityUrgent,
		ForceChannels: true,
	})

	assert.Equal(t, 2, result.SuccessCount)
	require.Len(t, f.notifications.created, 2)
	for _, n := range f.notifications.created {
		assert.Equal(t, domain.Channels{InApp: true, Email: true, SMS: true, Push: true}, n.Channels)
	}
	assert.Equal(t, 2, f.email.count())
	assert.Equal(t, 2, f.sms.count())
	assert.Equal(t, 2, f.push.count())
}
