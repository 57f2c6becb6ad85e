package channel

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"google.golang.org/api/option"
)

// multicastClient is the part of the FCM client the push sender uses
type multicastClient interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// PushSender sends notifications through Firebase Cloud Messaging
type PushSender struct {
	client multicastClient
	log    *logger.Logger
}

// NewPushSender initializes a Firebase app from a service account file
func NewPushSender(ctx context.Context, credentialsFile, projectID string, log *logger.Logger) (*PushSender, error) {
	if credentialsFile == "" {
		return nil, errors.New("firebase credentials file not provided")
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase messaging client: %w", err)
	}

	return &PushSender{client: client, log: log}, nil
}

// Channel implements Sender
func (s *PushSender) Channel() domain.Channel { return domain.ChannelPush }

// Send delivers the message to every registered device of the user. It
// fails only when no device accepted the message.
func (s *PushSender) Send(ctx context.Context, to *domain.User, msg *Message) error {
	data := map[string]string{
		"type":           string(msg.Type),
		"notificationId": msg.NotificationID.Hex(),
	}
	for k, v := range msg.Data {
		data[k] = formatValue(v)
	}

	priority := "normal"
	if msg.Priority == domain.PriorityHigh || msg.Priority == domain.PriorityUrgent {
		priority = "high"
	}

	resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: to.PushTokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data:    data,
		Android: &messaging.AndroidConfig{Priority: priority},
	})
	if err != nil {
		return fmt.Errorf("fcm multicast failed: %w", err)
	}

	var stale int
	var lastErr error
	for _, r := range resp.Responses {
		if r.Success {
			continue
		}
		lastErr = r.Error
		if messaging.IsUnregistered(r.Error) {
			stale++
		}
	}
	if stale > 0 {
		s.log.Warn("Push tokens no longer registered", "user_id", to.ID.Hex(), "count", stale)
	}

	if resp.SuccessCount == 0 {
		if lastErr == nil {
			lastErr = errors.New("no device accepted the message")
		}
		return fmt.Errorf("push delivery failed on all %d devices: %w", len(to.PushTokens), lastErr)
	}
	return nil
}
