// Package channel holds the delivery channel adapters the dispatcher fans
// out to: SMTP email, SMS over the provider's REST API, and Firebase push.
package channel

import (
	"context"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is the channel-neutral content of one notification
type Message struct {
	NotificationID primitive.ObjectID
	Type           domain.NotificationType
	Category       string
	Priority       domain.Priority
	Title          string
	Body           string
	Data           map[string]any
	Email          *domain.EmailOptions
	SMS            *domain.SMSOptions
}

// Sender delivers a message to one recipient on one channel
type Sender interface {
	Channel() domain.Channel
	Send(ctx context.Context, to *domain.User, msg *Message) error
}

// Reachable reports whether the user has the contact a channel needs
func Reachable(ch domain.Channel, u *domain.User) bool {
	switch ch {
	case domain.ChannelEmail:
		return u.HasEmail()
	case domain.ChannelSMS:
		return u.HasPhone()
	case domain.ChannelPush:
		return u.HasPushTokens()
	case domain.ChannelInApp:
		return true
	}
	return false
}
