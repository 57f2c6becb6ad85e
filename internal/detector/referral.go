package detector

import (
	"context"
	"fmt"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
)

var milestoneTiers = []string{domain.TierSilver, domain.TierGold, domain.TierPlatinum}

// ReferralMilestone congratulates referrers whose tier recently moved to
// silver, gold or platinum
type ReferralMilestone struct {
	base
	referrals ReferralStore
}

func NewReferralMilestone(cfg Config, deps Deps, referrals ReferralStore) *ReferralMilestone {
	return &ReferralMilestone{base: newBase(NameReferralMilestone, cfg, deps), referrals: referrals}
}

func (d *ReferralMilestone) Run(ctx context.Context) (RunStats, error) {
	return d.track(ctx, d.tick)
}

func (d *ReferralMilestone) tick(ctx context.Context, stats *RunStats) error {
	profiles, err := scan(ctx, &d.base, func(ctx context.Context) ([]*domain.ReferralProfile, error) {
		return d.referrals.FindTierUpgrades(ctx, milestoneTiers, d.now().Add(-d.cfg.Lookback), d.cfg.ResultLimit)
	})
	if err != nil {
		return err
	}
	stats.Scanned = len(profiles)

	for _, p := range profiles {
		d.emit(ctx, stats, Candidate{
			UserID:  p.UserID,
			Type:    domain.TypeReferralTierUpgraded,
			Title:   fmt.Sprintf("You reached %s tier", p.Tier),
			Message: fmt.Sprintf("%d successful referrals. Thanks for spreading the word!", p.TotalReferrals),
			Payload: &domain.ReferralPayload{Tier: p.Tier, TotalReferrals: p.TotalReferrals},
			Match:   map[string]any{"tier": p.Tier},
		})
	}
	return nil
}
