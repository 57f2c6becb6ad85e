package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
)

// LiveChatSLA alerts every admin about support sessions left pending
// longer than threshold. Alerts bypass admin channel preferences.
type LiveChatSLA struct {
	base
	chats ChatStore
}

func NewLiveChatSLA(cfg Config, deps Deps, chats ChatStore) *LiveChatSLA {
	return &LiveChatSLA{base: newBase(NameLiveChatSLA, cfg, deps), chats: chats}
}

func (d *LiveChatSLA) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *LiveChatSLA) tick(ctx context.Context, stats *RunStats) error {
	now := d.now()
	sessions, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.LiveChatSession, error) {
		return d.chats.FindChatSessions(ctx, domain.RangeQuery{
			Statuses: []string{domain.LiveChatPending},
			Field:    "createdAt",
			To:       now.Add(-d.cfg.Threshold),
			Limit:    d.cfg.ResultLimit,
		})
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(sessions)
	if len(sessions) == 0 {
		return nil
	}

	admins, err := d.adminIDs(ctx)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		d.log.Warn("No admin recipients for live chat alerts", "pending", len(sessions))
		return nil
	}

	for _, s := range sessions {
		waiting := int(now.Sub(s.CreatedAt) / time.Minute)
		d.emitTo(ctx, stats, admins, Candidate{
			Type:    domain.TypeLiveChatSLABreach,
			Title:   "Live chat waiting",
			Message: fmt.Sprintf("A customer has been waiting %d minutes: %s", waiting, s.Subject),
			Payload: &domain.ChatSessionPayload{
				SessionID:      s.ID,
				UserID:         s.UserID,
				Subject:        s.Subject,
				WaitingMinutes: waiting,
			},
			Match: map[string]any{"sessionId": s.ID},
			Force: true,
		})
	}
	return nil
}
