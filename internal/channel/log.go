package channel

import (
	"context"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
)

// LogSender stands in for a channel with no configured transport. It logs
// the message and reports success.
type LogSender struct {
	channel domain.Channel
	log     *logger.Logger
}

// NewLogSender creates a sender that only logs
func NewLogSender(channel domain.Channel, log *logger.Logger) *LogSender {
	return &LogSender{channel: channel, log: log}
}

// Channel implements Sender
func (s *LogSender) Channel() domain.Channel { return s.channel }

// Send implements Sender
func (s *LogSender) Send(ctx context.Context, to *domain.User, msg *Message) error {
	s.log.Info("Channel not configured, logging notification",
		"channel", s.channel,
		"user_id", to.ID.Hex(),
		"type", msg.Type,
		"title", msg.Title,
	)
	return nil
}
