package dlq

import (
	"context"
	"fmt"
	"time"

	"github.com/vhvplatform/go-marketplace-notifications/internal/channel"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/metrics"
	"github.com/vhvplatform/go-marketplace-notifications/internal/routing"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/clock"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxRetries = 3

// Store persists failed channel sends
type Store interface {
	Create(ctx context.Context, failed *domain.FailedChannelSend) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.FailedChannelSend, error)
	FindAll(ctx context.Context, page, pageSize int) ([]*domain.FailedChannelSend, int64, error)
	RecordRetry(ctx context.Context, id primitive.ObjectID, errMsg string, at time.Time) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// UserFinder loads the recipient of a retried send
type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// DeadLetterQueue records channel sends that failed so they can be
// inspected and retried by hand
type DeadLetterQueue struct {
	repo    Store
	users   UserFinder
	senders map[domain.Channel]channel.Sender
	clock   clock.Clock
	log     *logger.Logger
}

// NewDeadLetterQueue creates a new dead letter queue
func NewDeadLetterQueue(repo Store, users UserFinder, senders []channel.Sender, clk clock.Clock, log *logger.Logger) *DeadLetterQueue {
	bySender := make(map[domain.Channel]channel.Sender, len(senders))
	for _, s := range senders {
		bySender[s.Channel()] = s
	}
	return &DeadLetterQueue{
		repo:    repo,
		users:   users,
		senders: bySender,
		clock:   clk,
		log:     log,
	}
}

// Add records a failed channel send of a persisted notification
func (dlq *DeadLetterQueue) Add(ctx context.Context, n *domain.Notification, ch domain.Channel, sendErr error) error {
	dlq.log.Warn("Adding channel send to DLQ", "notification_id", n.ID.Hex(), "channel", ch, "error", sendErr)

	failed := &domain.FailedChannelSend{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Channel:        ch,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		Data:           n.Data,
		Error:          sendErr.Error(),
		FailedAt:       dlq.clock.Now(),
	}
	if err := dlq.repo.Create(ctx, failed); err != nil {
		return err
	}
	metrics.DLQSize.Inc()
	return nil
}

// GetAll retrieves failed channel sends
func (dlq *DeadLetterQueue) GetAll(ctx context.Context, page, pageSize int) ([]*domain.FailedChannelSend, int64, error) {
	return dlq.repo.FindAll(ctx, page, pageSize)
}

// Retry re-sends a failed channel send and removes it from the queue on
// success
func (dlq *DeadLetterQueue) Retry(ctx context.Context, id primitive.ObjectID) error {
	failed, err := dlq.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if failed.RetryCount >= maxRetries {
		return errors.NewValidationError(fmt.Sprintf("retry limit of %d reached", maxRetries), nil)
	}

	sender, ok := dlq.senders[failed.Channel]
	if !ok {
		return errors.NewValidationError(fmt.Sprintf("unsupported channel: %s", failed.Channel), nil)
	}

	user, err := dlq.users.FindByID(ctx, failed.UserID)
	if err != nil {
		return errors.NewInternalError("failed to load recipient", err)
	}
	if user == nil {
		return errors.NewUserNotFoundError(failed.UserID.Hex())
	}
	if !channel.Reachable(failed.Channel, user) {
		return errors.NewValidationError(fmt.Sprintf("recipient has no %s contact", failed.Channel), nil)
	}

	dlq.log.Info("Retrying failed channel send", "id", id.Hex(), "channel", failed.Channel, "type", failed.Type)

	entry := routing.Lookup(failed.Type)
	msg := &channel.Message{
		NotificationID: failed.NotificationID,
		Type:           failed.Type,
		Category:       entry.Category,
		Priority:       entry.DefaultPriority,
		Title:          failed.Title,
		Body:           failed.Message,
		Data:           failed.Data,
	}

	if sendErr := sender.Send(ctx, user, msg); sendErr != nil {
		if err := dlq.repo.RecordRetry(ctx, id, sendErr.Error(), dlq.clock.Now()); err != nil {
			dlq.log.Error("Failed to record retry", "id", id.Hex(), "error", err)
		}
		return errors.NewChannelSendError(string(failed.Channel), sendErr)
	}

	if err := dlq.repo.Delete(ctx, id); err != nil {
		return err
	}
	metrics.DLQSize.Dec()
	return nil
}

// SyncSizeMetric sets the DLQ size gauge from the store
func (dlq *DeadLetterQueue) SyncSizeMetric(ctx context.Context) {
	n, err := dlq.repo.Count(ctx)
	if err != nil {
		dlq.log.Warn("Failed to count DLQ", "error", err)
		return
	}
	metrics.DLQSize.Set(float64(n))
}
