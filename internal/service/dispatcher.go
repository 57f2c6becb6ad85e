package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/vhvplatform/go-marketplace-notifications/internal/channel"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/metrics"
	"github.com/vhvplatform/go-marketplace-notifications/internal/routing"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/clock"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultChannelTimeout = 15 * time.Second
	defaultStoreTimeout   = 5 * time.Second
)

// UserFinder loads notification recipients. A missing user is (nil, nil).
type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// NotificationStore persists in-app notifications
type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) error
}

// PreferenceProvider returns a user's effective preferences
type PreferenceProvider interface {
	Effective(ctx context.Context, userID primitive.ObjectID) *domain.NotificationPreferences
}

// Publisher pushes a freshly persisted notification to live sessions
type Publisher interface {
	Publish(n *domain.Notification)
}

// FailureRecorder records failed channel sends for later retry
type FailureRecorder interface {
	Add(ctx context.Context, n *domain.Notification, ch domain.Channel, err error) error
}

// NotificationSender is the dispatcher contract used by bulk sends,
// detectors and the event consumer
type NotificationSender interface {
	Send(ctx context.Context, req *domain.SendRequest) (*domain.SendResult, error)
}

// DispatcherOptions tunes dispatcher timeouts
type DispatcherOptions struct {
	ChannelTimeout time.Duration
	StoreTimeout   time.Duration
}

// Dispatcher persists a notification and fans it out to the channels the
// recipient has enabled
type Dispatcher struct {
	users         UserFinder
	notifications NotificationStore
	prefs         PreferenceProvider
	senders       map[domain.Channel]channel.Sender
	publisher     Publisher
	failures      FailureRecorder
	clock         clock.Clock
	log           *logger.Logger
	opts          DispatcherOptions
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(users UserFinder, notifications NotificationStore, prefs PreferenceProvider, senders []channel.Sender, clk clock.Clock, log *logger.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.ChannelTimeout <= 0 {
		opts.ChannelTimeout = defaultChannelTimeout
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}

	bySender := make(map[domain.Channel]channel.Sender, len(senders))
	for _, s := range senders {
		bySender[s.Channel()] = s
	}

	return &Dispatcher{
		users:         users,
		notifications: notifications,
		prefs:         prefs,
		senders:       bySender,
		clock:         clk,
		log:           log,
		opts:          opts,
	}
}

// WithPublisher sets the realtime publisher
func (d *Dispatcher) WithPublisher(p Publisher) *Dispatcher {
	d.publisher = p
	return d
}

// WithFailureRecorder sets where failed channel sends are recorded
func (d *Dispatcher) WithFailureRecorder(f FailureRecorder) *Dispatcher {
	d.failures = f
	return d
}

func failure(err error) (*domain.SendResult, error) {
	return &domain.SendResult{Success: false, Error: err.Error()}, err
}

func validateSendRequest(req *domain.SendRequest) error {
	switch {
	case req == nil:
		return errors.NewValidationError("request is required", nil)
	case req.UserID.IsZero():
		return errors.NewValidationError("userId is required", nil)
	case req.Type == "":
		return errors.NewValidationError("type is required", nil)
	case req.Title == "":
		return errors.NewValidationError("title is required", nil)
	case req.Priority != "" && !req.Priority.Valid():
		return errors.NewValidationError(fmt.Sprintf("invalid priority %q", req.Priority), nil)
	}
	return nil
}

// Send persists the notification and attempts every enabled channel the
// recipient can be reached on. Only validation, a missing recipient and a
// failed insert are reported as errors; channel failures are reported in
// the result.
func (d *Dispatcher) Send(ctx context.Context, req *domain.SendRequest) (*domain.SendResult, error) {
	if err := validateSendRequest(req); err != nil {
		return failure(err)
	}

	user, err := d.findUser(ctx, req.UserID)
	if err != nil {
		return failure(errors.NewInternalError("failed to load recipient", err))
	}
	if user == nil {
		return failure(errors.NewUserNotFoundError(req.UserID.Hex()))
	}

	prefs := d.prefs.Effective(ctx, user.ID)
	entry := routing.Lookup(req.Type)
	priority := entry.DefaultPriority
	if req.Priority != "" {
		priority = req.Priority
	}

	enabled := routing.ResolveChannels(prefs, entry, req.ForceChannels)
	attempted := domain.Channels{
		InApp: true,
		Email: enabled.Email && d.canSend(domain.ChannelEmail, user),
		SMS:   enabled.SMS && d.canSend(domain.ChannelSMS, user),
		Push:  enabled.Push && d.canSend(domain.ChannelPush, user),
	}

	data, err := domain.PayloadToData(req.Data)
	if err != nil {
		return failure(errors.NewValidationError("invalid payload", err))
	}

	n := &domain.Notification{
		UserID:    user.ID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Data:      data,
		Priority:  priority,
		Channels:  attempted,
		CreatedAt: d.clock.Now(),
	}
	if err := d.persist(ctx, n); err != nil {
		d.log.Error("Failed to persist notification", "user_id", user.ID.Hex(), "type", req.Type, "error", err)
		return failure(errors.NewInternalError("failed to persist notification", err))
	}
	metrics.NotificationsCreated.WithLabelValues(string(n.Type), string(n.Priority)).Inc()

	if d.publisher != nil {
		d.publisher.Publish(n)
	}

	msg := &channel.Message{
		NotificationID: n.ID,
		Type:           n.Type,
		Category:       entry.Category,
		Priority:       priority,
		Title:          n.Title,
		Body:           n.Message,
		Data:           data,
		Email:          req.EmailOptions,
		SMS:            req.SMSOptions,
	}
	results := d.fanOut(ctx, user, n, msg)

	d.log.Debug("Notification dispatched",
		"notification_id", n.ID.Hex(),
		"user_id", user.ID.Hex(),
		"type", n.Type,
		"email", attempted.Email,
		"sms", attempted.SMS,
		"push", attempted.Push,
	)

	return &domain.SendResult{Success: true, Notification: n, ChannelResults: results}, nil
}

func (d *Dispatcher) canSend(ch domain.Channel, user *domain.User) bool {
	_, ok := d.senders[ch]
	return ok && channel.Reachable(ch, user)
}

func (d *Dispatcher) findUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.StoreTimeout)
	defer cancel()
	return d.users.FindByID(ctx, id)
}

func (d *Dispatcher) persist(ctx context.Context, n *domain.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, d.opts.StoreTimeout)
	defer cancel()
	return d.notifications.Create(ctx, n)
}

// fanOut attempts every channel recorded in n.Channels concurrently and
// waits for all of them to settle
func (d *Dispatcher) fanOut(ctx context.Context, user *domain.User, n *domain.Notification, msg *channel.Message) domain.ChannelResults {
	var (
		wg      conc.WaitGroup
		mu      sync.Mutex
		results domain.ChannelResults
	)

	attempt := func(ch domain.Channel, slot **domain.ChannelResult) {
		wg.Go(func() {
			res := d.attempt(ctx, d.senders[ch], user, n, msg)
			mu.Lock()
			*slot = res
			mu.Unlock()
		})
	}

	if n.Channels.Email {
		attempt(domain.ChannelEmail, &results.Email)
	}
	if n.Channels.SMS {
		attempt(domain.ChannelSMS, &results.SMS)
	}
	if n.Channels.Push {
		attempt(domain.ChannelPush, &results.Push)
	}
	wg.Wait()

	return results
}

// attempt runs one channel send under its own timeout. A sender that
// panics or ignores its context is reported as a failure.
func (d *Dispatcher) attempt(ctx context.Context, sender channel.Sender, user *domain.User, n *domain.Notification, msg *channel.Message) *domain.ChannelResult {
	ch := sender.Channel()
	start := time.Now()

	sendCtx, cancel := context.WithTimeout(ctx, d.opts.ChannelTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%s sender panicked: %v", ch, r)
			}
		}()
		done <- sender.Send(sendCtx, user, msg)
	}()

	var err error
	select {
	case err = <-done:
	case <-sendCtx.Done():
		err = fmt.Errorf("%s send timed out: %w", ch, sendCtx.Err())
	}
	metrics.ChannelDuration.WithLabelValues(string(ch)).Observe(time.Since(start).Seconds())

	if err != nil {
		return d.recordFailure(ctx, n, ch, err)
	}
	metrics.ChannelAttempts.WithLabelValues(string(ch), "success").Inc()
	return &domain.ChannelResult{Success: true}
}

func (d *Dispatcher) recordFailure(ctx context.Context, n *domain.Notification, ch domain.Channel, err error) *domain.ChannelResult {
	metrics.ChannelAttempts.WithLabelValues(string(ch), "failed").Inc()
	d.log.Warn("Channel send failed",
		"notification_id", n.ID.Hex(),
		"user_id", n.UserID.Hex(),
		"channel", ch,
		"error", err,
	)

	if d.failures != nil {
		// the caller's deadline may already be spent by the failed send
		dlqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.StoreTimeout)
		defer cancel()
		if dlqErr := d.failures.Add(dlqCtx, n, ch, err); dlqErr != nil {
			d.log.Error("Failed to record channel failure", "notification_id", n.ID.Hex(), "channel", ch, "error", dlqErr)
		}
	}

	return &domain.ChannelResult{Success: false, Error: err.Error()}
}
