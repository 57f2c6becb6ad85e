package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventProcessor turns inbound business events into notifications
type EventProcessor struct {
	dispatcher NotificationSender
	bulk       *BulkDispatcher
	validate   *validator.Validate
	log        *logger.Logger
}

// NewEventProcessor creates a new event processor
func NewEventProcessor(dispatcher NotificationSender, bulk *BulkDispatcher, log *logger.Logger) *EventProcessor {
	return &EventProcessor{
		dispatcher: dispatcher,
		bulk:       bulk,
		validate:   validator.New(),
		log:        log,
	}
}

// ProcessEvent dispatches one event. Validation errors mean the event can
// never succeed; any other error is worth retrying.
func (p *EventProcessor) ProcessEvent(ctx context.Context, event *domain.Event) error {
	if err := p.validate.Struct(event); err != nil {
		return errors.NewValidationError("invalid event", err)
	}
	if !event.Kind.IsKnown() {
		return errors.NewValidationError(fmt.Sprintf("unknown notification type %q", event.Kind), nil)
	}
	if event.Priority != "" && !event.Priority.Valid() {
		return errors.NewValidationError(fmt.Sprintf("invalid priority %q", event.Priority), nil)
	}

	userIDs := make([]primitive.ObjectID, 0, len(event.UserIDs))
	for _, raw := range event.UserIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return errors.NewValidationError("invalid user id", err)
		}
		userIDs = append(userIDs, id)
	}

	payload, err := domain.DecodeJSONPayload(event.Kind, event.Data)
	if err != nil {
		return errors.NewValidationError("invalid event data", err)
	}

	p.log.Info("Processing event", "event_id", event.ID, "type", event.Type, "notification_type", event.Kind, "recipients", len(userIDs))

	if len(userIDs) == 1 {
		_, err := p.dispatcher.Send(ctx, &domain.SendRequest{
			UserID:        userIDs[0],
			Type:          event.Kind,
			Title:         event.Title,
			Message:       event.Message,
			Data:          payload,
			Priority:      event.Priority,
			ForceChannels: event.Force,
		})
		if errors.HasCode(err, errors.CodeUserNotFound) {
			return errors.NewValidationError("recipient does not exist", err)
		}
		return err
	}

	result := p.bulk.SendBulk(ctx, &domain.BulkRequest{
		UserIDs:       userIDs,
		Type:          event.Kind,
		Title:         event.Title,
		Message:       event.Message,
		Data:          payload,
		Priority:      event.Priority,
		ForceChannels: event.Force,
	})
	if result.FailedCount > 0 {
		p.log.Warn("Bulk event had failed recipients", "event_id", event.ID, "batch_id", result.BatchID, "failed", result.FailedCount)
	}
	return nil
}
