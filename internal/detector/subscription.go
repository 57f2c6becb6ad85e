package detector

import (
	"context"
	"fmt"
	"slices"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
)

// SubscriptionDunning reminds subscribers whose plan lapsed exactly one of
// reminder_days whole days ago
type SubscriptionDunning struct {
	base
	subscriptions SubscriptionStore
}

func NewSubscriptionDunning(cfg Config, deps Deps, subscriptions SubscriptionStore) *SubscriptionDunning {
	return &SubscriptionDunning{base: newBase(NameSubscriptionDunning, cfg, deps), subscriptions: subscriptions}
}

func (d *SubscriptionDunning) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *SubscriptionDunning) tick(ctx context.Context, stats *RunStats) error {
	if len(d.cfg.ReminderDays) == 0 {
		return nil
	}
	now := d.now()
	first, last := slices.Min(d.cfg.ReminderDays), slices.Max(d.cfg.ReminderDays)

	subs, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.Subscription, error) {
		return d.subscriptions.FindSubscriptions(ctx, domain.RangeQuery{
			Statuses: []string{domain.SubscriptionInactive},
			Field:    "inactiveSince",
			From:     now.AddDate(0, 0, -(last + 1)),
			To:       now.AddDate(0, 0, -first),
			Limit:    d.cfg.ResultLimit,
		})
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(subs)

	for _, s := range subs {
		if s.InactiveSince == nil {
			continue
		}
		days := int(now.Sub(*s.InactiveSince) / day)
		if !slices.Contains(d.cfg.ReminderDays, days) {
			continue
		}
		d.emit(ctx, stats, Candidate{
			UserID:  s.UserID,
			Type:    domain.TypeSubscriptionDunning,
			Title:   "Your subscription has lapsed",
			Message: fmt.Sprintf("Your %s plan has been inactive for %d days. Renew to keep your benefits.", s.PlanName, days),
			Payload: &domain.SubscriptionPayload{
				SubscriptionID: s.ID,
				PlanName:       s.PlanName,
				DaysInactive:   days,
			},
			Match: map[string]any{"subscriptionId": s.ID, "daysInactive": days},
		})
	}
	return nil
}
