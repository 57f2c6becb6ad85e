package detector

import (
	"context"
	"regexp"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const previewLength = 80

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLength {
		return s
	}
	return string(r[:previewLength]) + "…"
}

// MessageNudge reminds participants of messages they have not read for
// longer than threshold. Messages older than lookback are left alone.
type MessageNudge struct {
	base
	messages MessageStore
}

func NewMessageNudge(cfg Config, deps Deps, messages MessageStore) *MessageNudge {
	return &MessageNudge{base: newBase(NameMessageNudge, cfg, deps), messages: messages}
}

func (d *MessageNudge) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *MessageNudge) tick(ctx context.Context, stats *RunStats) error {
	now := d.now()
	msgs, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Message, error) {
		return d.messages.FindMessages(ctx, domain.RangeQuery{
			Field: "createdAt",
			From:  now.Add(-d.cfg.Lookback),
			To:    now.Add(-d.cfg.Threshold),
			Limit: d.cfg.ResultLimit,
		})
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(msgs)

	conversations := make(map[primitive.ObjectID]*domain.Conversation)
	for _, m := range msgs {
		conv, ok := conversations[m.ConversationID]
		if !ok {
			found, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Conversation, error) {
				c, err := d.messages.FindConversation(ctx, m.ConversationID)
				if c == nil {
					return nil, err
				}
				return []*domain.Conversation{c}, err
			})
			if err != nil {
				stats.Failed++
				d.log.Warn("Failed to load conversation", "conversation_id", m.ConversationID.Hex(), "error", err)
				continue
			}
			if len(found) > 0 {
				conv = found[0]
			}
			conversations[m.ConversationID] = conv
		}
		if conv == nil {
			continue
		}

		for _, participant := range conv.Participants {
			if participant == m.SenderID || m.ReadByUser(participant) {
				continue
			}
			d.emit(ctx, stats, Candidate{
				UserID:  participant,
				Type:    domain.TypeMessageUnreadNudge,
				Title:   "You have an unread message",
				Message: preview(m.Content),
				Payload: &domain.MessagePayload{
					ConversationID: m.ConversationID,
					MessageID:      m.ID,
					SenderID:       m.SenderID,
					Preview:        preview(m.Content),
				},
				Match: map[string]any{"conversationId": m.ConversationID},
			})
		}
	}
	return nil
}

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d(?:[\s.\-]?\d){8,14}`)
)

// contactReason reports which off-platform contact pattern content
// carries, or "" when none
func contactReason(content string) string {
	switch {
	case emailPattern.MatchString(content):
		return "email"
	case phonePattern.MatchString(content):
		return "phone"
	}
	return ""
}

// MessageModeration flags recent messages that share an email address or
// phone number. Admins are alerted and, with warn_sender, the sender is
// warned.
type MessageModeration struct {
	base
	messages MessageStore
}

func NewMessageModeration(cfg Config, deps Deps, messages MessageStore) *MessageModeration {
	return &MessageModeration{base: newBase(NameMessageModeration, cfg, deps), messages: messages}
}

func (d *MessageModeration) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *MessageModeration) tick(ctx context.Context, stats *RunStats) error {
	now := d.now()
	msgs, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Message, error) {
		return d.messages.FindMessages(ctx, domain.RangeQuery{
			Field: "createdAt",
			From:  now.Add(-d.cfg.Lookback),
			To:    now,
			Limit: d.cfg.ResultLimit,
		})
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(msgs)

	var (
		admins       []primitive.ObjectID
		adminsLoaded bool
	)
	for _, m := range msgs {
		reason := contactReason(m.Content)
		if reason == "" {
			continue
		}
		if !adminsLoaded {
			if admins, err = d.adminIDs(ctx); err != nil {
				return err
			}
			adminsLoaded = true
		}

		payload := &domain.MessagePayload{
			ConversationID: m.ConversationID,
			MessageID:      m.ID,
			SenderID:       m.SenderID,
			Reason:         reason,
			Preview:        preview(m.Content),
		}
		match := map[string]any{"messageId": m.ID}

		d.emitTo(ctx, stats, admins, Candidate{
			Type:    domain.TypeMessageFlagged,
			Title:   "Message flagged for review",
			Message: "A message appears to share contact details (" + reason + ").",
			Payload: payload,
			Match:   match,
		})
		if d.cfg.WarnSender {
			d.emit(ctx, stats, Candidate{
				UserID:  m.SenderID,
				Type:    domain.TypeMessageWarning,
				Title:   "Keep conversations on the platform",
				Message: "Sharing contact details in messages is against our community guidelines.",
				Payload: payload,
				Match:   match,
			})
		}
	}
	return nil
}
