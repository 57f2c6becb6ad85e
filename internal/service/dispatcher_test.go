package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vhvplatform/go-marketplace-notifications/internal/channel"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/clock"
	apperrors "github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userMap map[primitive.ObjectID]*domain.User

func (m userMap) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return m[id], nil
}

type memNotifications struct {
	mu      sync.Mutex
	created []*domain.Notification
	err     error
}

func (m *memNotifications) Create(ctx context.Context, n *domain.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = primitive.NewObjectID()
	m.created = append(m.created, n)
	return nil
}

type staticPrefs map[primitive.ObjectID]*domain.NotificationPreferences

func (s staticPrefs) Effective(ctx context.Context, userID primitive.ObjectID) *domain.NotificationPreferences {
	if p, ok := s[userID]; ok {
		return p.WithDefaults()
	}
	return domain.DefaultPreferences(userID)
}

type stubSender struct {
	ch    domain.Channel
	err   error
	panic bool
	block bool

	mu   sync.Mutex
	sent []*channel.Message
}

func (s *stubSender) Channel() domain.Channel { return s.ch }

func (s *stubSender) Send(ctx context.Context, to *domain.User, msg *channel.Message) error {
	if s.panic {
		panic("provider exploded")
	}
	if s.block {
		select {}
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return s.err
}

func (s *stubSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type recordedFailure struct {
	notificationID primitive.ObjectID
	channel        domain.Channel
}

type failureLog struct {
	mu       sync.Mutex
	failures []recordedFailure
}

func (f *failureLog) Add(ctx context.Context, n *domain.Notification, ch domain.Channel, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, recordedFailure{notificationID: n.ID, channel: ch})
	return nil
}

type publishLog struct {
	mu        sync.Mutex
	published []*domain.Notification
}

func (p *publishLog) Publish(n *domain.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, n)
}

type dispatcherFixture struct {
	dispatcher    *Dispatcher
	user          *domain.User
	users         userMap
	prefs         staticPrefs
	notifications *memNotifications
	email         *stubSender
	sms           *stubSender
	push          *stubSender
	failures      *failureLog
	published     *publishLog
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	t.Helper()
	user := &domain.User{
		ID:         primitive.NewObjectID(),
		Name:       "Mai",
		Email:      "mai@example.com",
		Phone:      "+84900000001",
		PushTokens: []string{"token-1"},
		Role:       domain.RoleUser,
		IsActive:   true,
	}
	f := &dispatcherFixture{
		user:          user,
		users:         userMap{user.ID: user},
		prefs:         staticPrefs{},
		notifications: &memNotifications{},
		email:         &stubSender{ch: domain.ChannelEmail},
		sms:           &stubSender{ch: domain.ChannelSMS},
		push:          &stubSender{ch: domain.ChannelPush},
		failures:      &failureLog{},
		published:     &publishLog{},
	}
	f.dispatcher = NewDispatcher(
		f.users,
		f.notifications,
		f.prefs,
		[]channel.Sender{f.email, f.sms, f.push},
		clock.NewFake(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)),
		logger.NewNop(),
		DispatcherOptions{ChannelTimeout: 200 * time.Millisecond, StoreTimeout: time.Second},
	).WithFailureRecorder(f.failures).WithPublisher(f.published)
	return f
}

func (f *dispatcherFixture) request(typ domain.NotificationType) *domain.SendRequest {
	return &domain.SendRequest{
		UserID:  f.user.ID,
		Type:    typ,
		Title:   "Your booking is confirmed",
		Message: "See you on Friday",
		Data:    &domain.BookingPayload{BookingID: primitive.NewObjectID(), ServiceName: "Plumbing"},
	}
}

func TestDispatcher_Send_AllChannels(t *testing.T) {
	f := newDispatcherFixture(t)

	res, err := f.dispatcher.Send(context.Background(), f.request(domain.TypeBookingConfirmed))
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotNil(t, res.Notification)

	assert.Equal(t, domain.PriorityHigh, res.Notification.Priority)
	assert.Equal(t, domain.Channels{InApp: true, Email: true, SMS: true, Push: true}, res.Notification.Channels)
	assert.False(t, res.Notification.IsRead)
	assert.Equal(t, "Plumbing", res.Notification.Data["serviceName"])

	require.NotNil(t, res.ChannelResults.Email)
	require.NotNil(t, res.ChannelResults.SMS)
	require.NotNil(t, res.ChannelResults.Push)
	assert.True(t, res.ChannelResults.Email.Success)
	assert.True(t, res.ChannelResults.SMS.Success)
	assert.True(t, res.ChannelResults.Push.Success)

	assert.Len(t, f.notifications.created, 1)
	assert.Len(t, f.published.published, 1)
	assert.Equal(t, domain.CategoryBookingUpdates, f.email.sent[0].Category)
}

func TestDispatcher_Send_ChannelFailureIsIsolated(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *dispatcherFixture)
	}{
		{
			name:  "error",
			setup: func(f *dispatcherFixture) { f.sms.err = errors.New("provider rejected number") },
		},
		{
			name:  "panic",
			setup: func(f *dispatcherFixture) { f.sms.panic = true },
		},
		{
			name:  "timeout",
			setup: func(f *dispatcherFixture) { f.sms.block = true },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDispatcherFixture(t)
			tt.setup(f)

			res, err := f.dispatcher.Send(context.Background(), f.request(domain.TypeBookingReminder))
			require.NoError(t, err)
			assert.True(t, res.Success)

			require.NotNil(t, res.ChannelResults.SMS)
			assert.False(t, res.ChannelResults.SMS.Success)
			assert.NotEmpty(t, res.ChannelResults.SMS.Error)
			assert.True(t, res.ChannelResults.Email.Success)
			assert.True(t, res.ChannelResults.Push.Success)

			require.Len(t, f.failures.failures, 1)
			assert.Equal(t, domain.ChannelSMS, f.failures.failures[0].channel)
			assert.Equal(t, res.Notification.ID, f.failures.failures[0].notificationID)
		})
	}
}

func TestDispatcher_Send_RespectsPreferences(t *testing.T) {
	f := newDispatcherFixture(t)
	f.prefs[f.user.ID] = &domain.NotificationPreferences{
		UserID: f.user.ID,
		Email:  domain.ChannelPreference{Enabled: false},
		SMS:    domain.ChannelPreference{Enabled: true, Categories: map[string]bool{domain.SMSCategoryBookingReminders: false}},
		Push:   domain.ChannelPreference{Enabled: true},
	}

	res, err := f.dispatcher.Send(context.Background(), f.request(domain.TypeBookingReminder))
	require.NoError(t, err)

	assert.Equal(t, domain.Channels{InApp: true, Push: true}, res.Notification.Channels)
	assert.Nil(t, res.ChannelResults.Email)
	assert.Nil(t, res.ChannelResults.SMS)
	assert.NotNil(t, res.ChannelResults.Push)
	assert.Zero(t, f.email.count())
	assert.Zero(t, f.sms.count())
}

func TestDispatcher_Send_MarketingIsOptIn(t *testing.T) {
	f := newDispatcherFixture(t)

	res, err := f.dispatcher.Send(context.Background(), &domain.SendRequest{
		UserID: f.user.ID,
		Type:   domain.TypeMarketingPromotion,
		Title:  "Spring sale",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.Channels{InApp: true}, res.Notification.Channels)
	assert.Equal(t, domain.PriorityLow, res.Notification.Priority)
}

func TestDispatcher_Send_ForceOverridesPreferences(t *testing.T) {
	f := newDispatcherFixture(t)
	f.prefs[f.user.ID] = &domain.NotificationPreferences{
		UserID: f.user.ID,
		Email:  domain.ChannelPreference{Enabled: false},
		SMS:    domain.ChannelPreference{Enabled: false},
		Push:   domain.ChannelPreference{Enabled: false},
	}

	req := f.request(domain.TypeSecurityAlert)
	req.ForceChannels = true
	req.Priority = domain.PriorityUrgent

	res, err := f.dispatcher.Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.Channels{InApp: true, Email: true, SMS: true, Push: true}, res.Notification.Channels)
	assert.Equal(t, 1, f.email.count())
	assert.Equal(t, 1, f.sms.count())
	assert.Equal(t, 1, f.push.count())
}

func TestDispatcher_Send_SkipsUnreachableChannels(t *testing.T) {
	f := newDispatcherFixture(t)
	f.user.Phone = ""
	f.user.PushTokens = nil

	res, err := f.dispatcher.Send(context.Background(), f.request(domain.TypeBookingReminder))
	require.NoError(t, err)
	assert.Equal(t, domain.Channels{InApp: true, Email: true}, res.Notification.Channels)
	assert.Nil(t, res.ChannelResults.SMS)
	assert.Nil(t, res.ChannelResults.Push)
	assert.Empty(t, f.failures.failures)
}

func TestDispatcher_Send_UserNotFound(t *testing.T) {
	f := newDispatcherFixture(t)
	req := f.request(domain.TypeBookingReminder)
	req.UserID = primitive.NewObjectID()

	res, err := f.dispatcher.Send(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUserNotFound))
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, f.notifications.created)
	assert.Zero(t, f.email.count())
}

func TestDispatcher_Send_PersistFailure(t *testing.T) {
	f := newDispatcherFixture(t)
	f.notifications.err = errors.New("connection reset")

	res, err := f.dispatcher.Send(context.Background(), f.request(domain.TypeBookingReminder))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
	assert.False(t, res.Success)
	assert.Zero(t, f.email.count())
	assert.Empty(t, f.published.published)
}

func TestDispatcher_Send_Validation(t *testing.T) {
	f := newDispatcherFixture(t)

	tests := []struct {
		name   string
		mutate func(r *domain.SendRequest)
	}{
		{"missing user", func(r *domain.SendRequest) { r.UserID = primitive.NilObjectID }},
		{"missing type", func(r *domain.SendRequest) { r.Type = "" }},
		{"missing title", func(r *domain.SendRequest) { r.Title = "" }},
		{"bad priority", func(r *domain.SendRequest) { r.Priority = "critical" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request(domain.TypeBookingReminder)
			tt.mutate(req)

			res, err := f.dispatcher.Send(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.False(t, res.Success)
		})
	}
	assert.Empty(t, f.notifications.created)
}

func TestDispatcher_Send_UnknownTypeUsesFallbackRouting(t *testing.T) {
	f := newDispatcherFixture(t)

	res, err := f.dispatcher.Send(context.Background(), &domain.SendRequest{
		UserID: f.user.ID,
		Type:   domain.NotificationType("vendor_custom"),
		Title:  "Heads up",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityMedium, res.Notification.Priority)
	assert.False(t, res.Notification.Channels.SMS)
}
